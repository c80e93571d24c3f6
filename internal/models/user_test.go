package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClearsPoliceFieldsForOtherRoles(t *testing.T) {
	profile := &Profile{Role: RoleCitizen, BadgeNumber: "B-100", Department: "Cyber"}
	profile.Normalize()
	assert.Empty(t, profile.BadgeNumber)
	assert.Empty(t, profile.Department)

	kept := &Profile{Role: RolePolice, BadgeNumber: "B-100", Department: "Cyber"}
	kept.Normalize()
	assert.Equal(t, "B-100", kept.BadgeNumber)
	assert.Equal(t, "Cyber", kept.Department)
}

func TestMissingPoliceFields(t *testing.T) {
	complete := &Profile{Role: RolePolice, BadgeNumber: "B-100", Department: "Cyber"}
	assert.Nil(t, complete.MissingPoliceFields())

	missing := &Profile{Role: RolePolice, BadgeNumber: "  "}
	fields := missing.MissingPoliceFields()
	assert.Contains(t, fields, "badge_number")
	assert.Contains(t, fields, "department")

	citizen := &Profile{Role: RoleCitizen}
	assert.Nil(t, citizen.MissingPoliceFields())
}

func TestValidPhoneNumber(t *testing.T) {
	assert.True(t, ValidPhoneNumber(""))
	assert.True(t, ValidPhoneNumber("+919876543210"))
	assert.True(t, ValidPhoneNumber("9876543210"))
	assert.False(t, ValidPhoneNumber("12345"))
	assert.False(t, ValidPhoneNumber("phone-number"))
	assert.False(t, ValidPhoneNumber("+91 98765 43210"))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleCitizen))
	assert.True(t, ValidRole(RolePolice))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole(Role("superuser")))
}

func TestProfileCapabilities(t *testing.T) {
	assert.True(t, (&Profile{Role: RolePolice}).IsPoliceOrAdmin())
	assert.True(t, (&Profile{Role: RoleAdmin}).IsPoliceOrAdmin())
	assert.False(t, (&Profile{Role: RoleCitizen}).IsPoliceOrAdmin())
	assert.True(t, (&Profile{Role: RoleAdmin}).CanManageUsers())
	assert.False(t, (&Profile{Role: RolePolice}).CanManageUsers())
}
