package auth

import (
	"slices"
	"testing"
)

func TestIsAuthorizedFor(t *testing.T) {
	tests := []struct {
		name     string
		services []string
		tenant   string
		want     bool
	}{
		{name: "empty set denies", services: nil, tenant: "svc-a", want: false},
		{name: "empty slice denies", services: []string{}, tenant: "svc-a", want: false},
		{name: "member allowed", services: []string{"svc-a", "svc-b"}, tenant: "svc-b", want: true},
		{name: "non member denied", services: []string{"svc-a"}, tenant: "svc-b", want: false},
		{name: "wildcard allows any", services: []string{AllServices}, tenant: "svc-z", want: true},
		{name: "wildcard among others", services: []string{"svc-a", AllServices}, tenant: "svc-q", want: true},
		{name: "empty tenant denied", services: []string{"svc-a", ""}, tenant: "", want: false},
		{name: "prefix is not membership", services: []string{"svc"}, tenant: "svc-a", want: false},
		{name: "case sensitive", services: []string{"SVC-A"}, tenant: "svc-a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CallerContext{CallerID: "tok_1", AuthorizedServices: tt.services}
			if got := IsAuthorizedFor(c, tt.tenant); got != tt.want {
				t.Errorf("IsAuthorizedFor(%v, %q) = %v, want %v", tt.services, tt.tenant, got, tt.want)
			}
		})
	}
}

func TestFilterClause(t *testing.T) {
	tests := []struct {
		name      string
		services  []string
		wantAll   bool
		wantList  []string
		wantEmpty bool
	}{
		{name: "no entitlements", services: nil, wantList: []string{}, wantEmpty: true},
		{name: "wildcard", services: []string{AllServices}, wantAll: true},
		{name: "wildcard wins", services: []string{"svc-a", AllServices}, wantAll: true},
		{name: "explicit list", services: []string{"svc-a", "svc-b"}, wantList: []string{"svc-a", "svc-b"}},
		{name: "duplicates and blanks dropped", services: []string{"svc-a", "", "svc-a"}, wantList: []string{"svc-a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterClause(CallerContext{AuthorizedServices: tt.services})
			if got.All != tt.wantAll {
				t.Fatalf("All = %v, want %v", got.All, tt.wantAll)
			}
			if !tt.wantAll && !slices.Equal(got.Services, tt.wantList) {
				t.Errorf("Services = %v, want %v", got.Services, tt.wantList)
			}
			if got.Empty() != tt.wantEmpty {
				t.Errorf("Empty() = %v, want %v", got.Empty(), tt.wantEmpty)
			}
		})
	}
}

func TestFilterClauseAgreesWithIsAuthorizedFor(t *testing.T) {
	callers := [][]string{nil, {"svc-a"}, {"svc-a", "svc-b"}, {AllServices}}
	tenants := []string{"svc-a", "svc-b", "svc-c"}
	for _, services := range callers {
		c := CallerContext{AuthorizedServices: services}
		scope := FilterClause(c)
		for _, tenant := range tenants {
			if scope.Allows(tenant) != IsAuthorizedFor(c, tenant) {
				t.Errorf("services %v tenant %q: Scope.Allows=%v IsAuthorizedFor=%v",
					services, tenant, scope.Allows(tenant), IsAuthorizedFor(c, tenant))
			}
		}
	}
}

func TestFilterClause_DoesNotAliasCaller(t *testing.T) {
	c := CallerContext{AuthorizedServices: []string{"svc-a"}}
	scope := FilterClause(c)
	scope.Services[0] = "svc-z"
	if c.AuthorizedServices[0] != "svc-a" {
		t.Fatal("FilterClause must not share the caller's slice")
	}
}
