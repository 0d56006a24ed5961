// Package http exposes conversations over a JSON API for a transport or model gateway.
package http
