package auth

import "testing"

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleViewer, CapReadTasks, true},
		{RoleViewer, CapWriteTasks, false},
		{RoleViewer, CapAdminPanel, false},
		{RoleUser, CapWriteTasks, true},
		{RoleUser, CapDeleteTasks, false},
		{RoleUser, CapReadUsers, false},
		{RoleManager, CapDeleteTasks, true},
		{RoleManager, CapReadUsers, true},
		{RoleManager, CapWriteUsers, true},
		{RoleManager, CapDeleteUsers, false},
		{RoleManager, CapReadAuditLogs, false},
		{RoleManager, CapSystemConfig, false},
		{RoleAdmin, CapDeleteUsers, true},
		{RoleAdmin, CapDeleteOrganizations, true},
		{RoleAdmin, CapReadAuditLogs, true},
		{RoleAdmin, CapAdminPanel, true},
		{RoleAdmin, CapSystemConfig, true},
		{Role("unknown"), CapReadTasks, false},
	}
	for _, tc := range cases {
		if got := tc.role.HasCapability(tc.cap); got != tc.want {
			t.Errorf("HasCapability(%s, %s) = %v, want %v", tc.role, tc.cap, got, tc.want)
		}
	}
}

func TestCapabilitySetsGrowWithSeniority(t *testing.T) {
	roles := Roles()
	for i := 1; i < len(roles); i++ {
		junior, senior := roles[i-1], roles[i]
		for _, c := range Capabilities(junior) {
			if !senior.HasCapability(c) {
				t.Errorf("%s grants %s but senior %s does not", junior, c, senior)
			}
		}
		if len(Capabilities(senior)) <= len(Capabilities(junior)) {
			t.Errorf("%s grant set is not larger than %s's", senior, junior)
		}
	}
}

func TestAdminGrantsEveryCapability(t *testing.T) {
	all := []Capability{
		CapReadTasks, CapWriteTasks, CapDeleteTasks,
		CapReadUsers, CapWriteUsers, CapDeleteUsers,
		CapReadOrganizations, CapWriteOrganizations, CapDeleteOrganizations,
		CapReadAuditLogs, CapAdminPanel, CapSystemConfig,
	}
	for _, c := range all {
		if !RoleAdmin.HasCapability(c) {
			t.Errorf("admin is missing %s", c)
		}
	}
	if got := len(Capabilities(RoleAdmin)); got != len(all) {
		t.Errorf("admin grant set has %d capabilities, want %d", got, len(all))
	}
}

func TestAtLeast(t *testing.T) {
	if !RoleManager.AtLeast(RoleUser) {
		t.Error("manager should satisfy a user threshold")
	}
	if !RoleManager.AtLeast(RoleManager) {
		t.Error("a role should satisfy its own threshold")
	}
	if RoleUser.AtLeast(RoleManager) {
		t.Error("user should not satisfy a manager threshold")
	}
	if Role("unknown").AtLeast(RoleViewer) {
		t.Error("unknown roles are never sufficient")
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("  Manager ")
	if err != nil {
		t.Fatalf("ParseRole: %v", err)
	}
	if role != RoleManager {
		t.Fatalf("ParseRole = %s, want manager", role)
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected an error for an unknown role")
	}
}
