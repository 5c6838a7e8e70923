package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                               "/",
		"/metrics":                       "/metrics",
		"/v1/organizations":              "/v1/organizations",
		"/v1/organizations/abc":          "/v1/organizations/:id",
		"/v1/organizations/abc/users":    "/v1/organizations/:id/users",
		"/v1/organizations/abc/extra":    "/v1/organizations/abc/extra",
		"/v1/users/u-123":                "/v1/users/:id",
		"/v1/audit":                      "/v1/audit",
		"/v1/audit?organization_id=o-1":  "/v1/audit",
		"/v1/auth/sessions":              "/v1/auth/sessions",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
