package report

const dailyTextTemplate = `{{ app_name | upcase }} DAILY REPORT - {{ date }}

REVENUE
  MRR: ${{ mrr }}
  Active Subscriptions: {{ active_subscriptions }}
  New Customers Today: {{ new_customers_today }}

USERS
  Total Users: {{ total_users }}
  New Today: {{ new_users_today }}
  Pro Users: {{ pro_users }}

ACTIVITY
  Total Links: {{ total_links }}
  Clicks Today: {{ clicks_today }}
  Clicks This Week: {{ clicks_week }}
`

const dailyHTMLTemplate = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #333;">{{ app_name }} Daily Report</h1>
  <p style="color: #666;">{{ date }}</p>

  <div style="background: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h2 style="margin-top: 0;">Revenue</h2>
    <table style="width: 100%;">
      <tr><td>MRR:</td><td style="text-align: right;"><strong>${{ mrr }}</strong></td></tr>
      <tr><td>Active Subscriptions:</td><td style="text-align: right;"><strong>{{ active_subscriptions }}</strong></td></tr>
      <tr><td>New Customers Today:</td><td style="text-align: right;"><strong>{{ new_customers_today }}</strong></td></tr>
    </table>
  </div>

  <div style="background: #e8f4f8; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h2 style="margin-top: 0;">Users</h2>
    <table style="width: 100%;">
      <tr><td>Total Users:</td><td style="text-align: right;"><strong>{{ total_users }}</strong></td></tr>
      <tr><td>New Today:</td><td style="text-align: right;"><strong>{{ new_users_today }}</strong></td></tr>
      <tr><td>Pro Users:</td><td style="text-align: right;"><strong>{{ pro_users }}</strong></td></tr>
    </table>
  </div>

  <div style="background: #f0f8e8; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h2 style="margin-top: 0;">Activity</h2>
    <table style="width: 100%;">
      <tr><td>Total Links:</td><td style="text-align: right;"><strong>{{ total_links }}</strong></td></tr>
      <tr><td>Clicks Today:</td><td style="text-align: right;"><strong>{{ clicks_today }}</strong></td></tr>
      <tr><td>Clicks This Week:</td><td style="text-align: right;"><strong>{{ clicks_week }}</strong></td></tr>
    </table>
  </div>

  <p style="color: #999; font-size: 12px; text-align: center;">
    Sent automatically by {{ app_name }} Autopilot
  </p>
</div>`

const weeklyTextTemplate = `{{ app_name | upcase }} WEEKLY REPORT

REVENUE
   MRR: ${{ mrr }}
   Revenue This Month: ${{ revenue_month }}
   Active Subscriptions: {{ active_subscriptions }}
   New Customers This Week: {{ new_customers_week }}
   Churned This Month: {{ churned_month }}

USERS
   Total Users: {{ total_users }}
   New This Week: {{ new_users_week }}
   Pro Users: {{ pro_users }}

ACTIVITY
   Total Links: {{ total_links }}
   Clicks This Week: {{ clicks_week }}

Generated: {{ generated }}
`

const leadListTextTemplate = `TODAY'S LEAD LIST - {{ count }} people to DM

These DMs go out automatically. Check back for conversions.
{% for lead in leads %}
#{{ lead.rank }} @{{ lead.username }} ({{ lead.followers }} followers)
   {{ lead.bio }}
   {{ lead.url }}
{% endfor %}{% if more > 0 %}
...and {{ more }} more in the CSV export.
{% endif %}`

const leadListHTMLTemplate = `<div style="font-family: Arial, sans-serif; max-width: 800px;">
  <h1>Today's Lead List - {{ count }} people to DM</h1>
  <p style="color: #666;">These DMs will be sent automatically. Just check back for conversions.</p>
  <hr>
{% for lead in leads %}  <div style="padding: 15px; background: #f5f5f5; margin: 10px 0; border-radius: 8px;">
    <strong>#{{ lead.rank }} <a href="{{ lead.url }}">@{{ lead.username }}</a></strong>
    ({{ lead.followers }} followers)<br>
    <span style="color: #666;">{{ lead.bio }}</span>
  </div>
{% endfor %}{% if more > 0 %}  <p>...and {{ more }} more</p>
{% endif %}</div>`
