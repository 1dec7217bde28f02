package middleware

import (
	"net"
	"net/http"
	"strings"
)

// WithSubnet lets a request through only when its X-Real-IP lies inside
// the CIDR subnet. An empty subnet disables the check; an unparsable one
// rejects everything.
func WithSubnet(subnet string) func(next http.Handler) http.Handler {
	subnet = strings.TrimSpace(subnet)
	_, trusted, parseErr := net.ParseCIDR(subnet)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subnet == "" {
				next.ServeHTTP(w, r)
				return
			}

			ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP")))
			if parseErr != nil || ip == nil || !trusted.Contains(ip) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
