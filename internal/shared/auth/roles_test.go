package auth

import "testing"

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		pending []AccessRequest
		want    Role
	}{
		{
			name:  "no requests defaults to viewer",
			email: "a@city.gov",
			want:  RoleViewer,
		},
		{
			name:  "approved request applies",
			email: "a@city.gov",
			pending: []AccessRequest{
				{Email: "a@city.gov", Role: RoleDepartmentAdmin, Approved: true},
			},
			want: RoleDepartmentAdmin,
		},
		{
			name:  "unapproved request ignored",
			email: "a@city.gov",
			pending: []AccessRequest{
				{Email: "a@city.gov", Role: RoleSuperAdmin, Approved: false},
			},
			want: RoleViewer,
		},
		{
			name:  "other user's request ignored",
			email: "a@city.gov",
			pending: []AccessRequest{
				{Email: "b@city.gov", Role: RoleSuperAdmin, Approved: true},
			},
			want: RoleViewer,
		},
		{
			name:  "most privileged approved request wins",
			email: "a@city.gov",
			pending: []AccessRequest{
				{Email: "a@city.gov", Role: RoleFieldOfficer, Approved: true},
				{Email: "a@city.gov", Role: RoleSuperAdmin, Approved: true},
				{Email: "a@city.gov", Role: RoleDepartmentAdmin, Approved: true},
			},
			want: RoleSuperAdmin,
		},
		{
			name:  "unknown role ignored",
			email: "a@city.gov",
			pending: []AccessRequest{
				{Email: "a@city.gov", Role: Role("Mayor"), Approved: true},
			},
			want: RoleViewer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRole(tt.email, tt.pending); got != tt.want {
				t.Errorf("ResolveRole() = %q, want %q", got, tt.want)
			}
		})
	}
}
