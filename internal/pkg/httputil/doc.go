// Package httputil holds the JSON request/response helpers the control
// panel handlers share.
package httputil
