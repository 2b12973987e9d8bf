package config

// Preset names accepted by Load and WriteSample.
const (
	PresetRedHat   = "redhat"
	PresetOpenLDAP = "openldap"
	PresetAD       = "ad"
)

// presetSettings returns the defaults for a named deployment flavour.
// Preset values sit under the user configuration: anything the user file
// sets wins key by key.
func presetSettings(name string) (map[string]any, bool) {
	switch name {
	case PresetRedHat:
		return map[string]any{
			"ldap": map[string]any{
				"server":      "ldaps://ldap.corp.redhat.com:636",
				"base_dn":     "dc=redhat,dc=com",
				"auth_method": AuthAnonymous,
				"use_ssl":     true,
			},
			"schema": map[string]any{
				"person_object_class": "rhatPerson",
				"person_search_base":  "ou=users,dc=redhat,dc=com",
				"group_search_base":   "ou=adhoc,ou=managedGroups,dc=redhat,dc=com",
				"extension_attributes": []string{
					"rhatJobTitle",
					"rhatCostCenter",
					"rhatCostCenterDesc",
					"rhatLocation",
					"rhatBio",
					"rhatGeo",
					"rhatOrganization",
					"rhatJobRole",
					"rhatTeamLead",
					"rhatOriginalHireDate",
					"rhatHireDate",
					"rhatWorkerId",
					"rhatPersonType",
					"rhatBuildingCode",
					"rhatOfficeLocation",
				},
			},
		}, true

	case PresetOpenLDAP:
		return map[string]any{
			"ldap": map[string]any{
				"server":      "ldap://localhost:389",
				"base_dn":     "dc=example,dc=com",
				"auth_method": AuthAnonymous,
			},
			"schema": map[string]any{
				"person_object_class": "inetOrgPerson",
				"group_object_class":  "groupOfNames",
				"person_search_base":  "ou=people,dc=example,dc=com",
				"group_search_base":   "ou=groups,dc=example,dc=com",
			},
		}, true

	case PresetAD:
		return map[string]any{
			"ldap": map[string]any{
				"server":      "ldaps://dc1.example.com:636",
				"base_dn":     "dc=example,dc=com",
				"auth_method": AuthSimple,
				"use_ssl":     true,
			},
			"schema": map[string]any{
				"person_object_class": "user",
				"group_object_class":  "group",
				"person_search_base":  "cn=Users,dc=example,dc=com",
				"group_search_base":   "cn=Users,dc=example,dc=com",
				"corporate_attributes": []string{
					"sAMAccountName",
					"userPrincipalName",
					"department",
					"objectSid",
					"employeeNumber",
					"employeeType",
				},
			},
		}, true
	}

	return nil, false
}
