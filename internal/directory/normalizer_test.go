package directory

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

func extendedNormalizer() *Normalizer {
	return NewNormalizer(testDirectoryConfig().Schema)
}

func TestPersonTitlePrecedence(t *testing.T) {
	n := extendedNormalizer()

	entry := personEntry("alice", map[string][]string{
		"cn":           {"Alice Smith"},
		"title":        {"Software Engineer"},
		"rhatJobTitle": {"Engineer"},
	})
	person := n.Person(entry)

	assert.Equal(t, "Engineer", person.Title)

	// Without the extension the generic title stands.
	entry = personEntry("bob", map[string][]string{
		"title": {"Software Engineer"},
	})
	assert.Equal(t, "Software Engineer", n.Person(entry).Title)
}

func TestPersonAbsentFieldsOmittedFromJSON(t *testing.T) {
	n := extendedNormalizer()

	entry := personEntry("alice", map[string][]string{
		"cn":           {"Alice Smith"},
		"title":        {"Software Engineer"},
		"rhatJobTitle": {"Engineer"},
	})

	data, err := json.Marshal(n.Person(entry))
	require.NoError(t, err)

	assert.NotContains(t, string(data), `"department"`)
	assert.NotContains(t, string(data), `"mobile"`)
	assert.Contains(t, string(data), `"uid":"alice"`)
	assert.Contains(t, string(data), `"title":"Engineer"`)
}

func TestPersonDepartmentPrecedence(t *testing.T) {
	n := extendedNormalizer()

	entry := personEntry("alice", map[string][]string{
		"department":         {"Engineering"},
		"rhatCostCenterDesc": {"Platform Engineering"},
	})
	assert.Equal(t, "Platform Engineering", n.Person(entry).Department)

	entry = personEntry("bob", map[string][]string{
		"department": {"Engineering"},
	})
	assert.Equal(t, "Engineering", n.Person(entry).Department)
}

func TestPersonOfficeLocationFallback(t *testing.T) {
	n := extendedNormalizer()

	tests := []struct {
		name  string
		attrs map[string][]string
		want  string
	}{
		{
			name: "office name wins",
			attrs: map[string][]string{
				"physicalDeliveryOfficeName": {"Brno Office"},
				"rhatLocation":               {"Brno TPB"},
				"l":                          {"Brno"},
			},
			want: "Brno Office",
		},
		{
			name: "extension location second",
			attrs: map[string][]string{
				"rhatLocation": {"Brno TPB"},
				"l":            {"Brno"},
			},
			want: "Brno TPB",
		},
		{
			name:  "locality last",
			attrs: map[string][]string{"l": {"Brno"}},
			want:  "Brno",
		},
		{
			name:  "nothing set",
			attrs: map[string][]string{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			person := n.Person(personEntry("alice", tt.attrs))
			assert.Equal(t, tt.want, person.OfficeLocation)
		})
	}
}

func TestPersonEmployeeFields(t *testing.T) {
	n := extendedNormalizer()

	entry := personEntry("alice", map[string][]string{
		"employeeNumber": {"100001"},
		"rhatWorkerId":   {"W-9"},
		"rhatPersonType": {"Contractor"},
		"rhatCostCenter": {"CC123"},
	})
	person := n.Person(entry)

	assert.Equal(t, "100001", person.EmployeeID)
	assert.Equal(t, "Contractor", person.EmployeeType)
	assert.Equal(t, "CC123", person.CostCenter)

	entry = personEntry("bob", map[string][]string{
		"rhatWorkerId": {"W-10"},
		"employeeType": {"Employee"},
	})
	person = n.Person(entry)
	assert.Equal(t, "W-10", person.EmployeeID)
	assert.Equal(t, "Employee", person.EmployeeType)
}

func TestPersonMultiValuedAttributeUsesFirst(t *testing.T) {
	n := extendedNormalizer()

	entry := personEntry("alice", map[string][]string{
		"mail": {"alice@example.com", "asmith@example.com"},
	})
	assert.Equal(t, "alice@example.com", n.Person(entry).Mail)
}

func TestPersonUIDFallsBackToDN(t *testing.T) {
	n := extendedNormalizer()

	entry := ldap.NewEntry("uid=bob,ou=users,dc=example,dc=com", map[string][]string{
		"cn": {"Bob Jones"},
	})
	assert.Equal(t, "bob", n.Person(entry).UID)

	entry = ldap.NewEntry("cn=Bob Jones,ou=users,dc=example,dc=com", map[string][]string{
		"cn": {"Bob Jones"},
	})
	assert.Empty(t, n.Person(entry).UID)
}

func TestPersonExtensions(t *testing.T) {
	schema := config.New().Schema
	schema.ExtensionAttributes = []string{"rhatJobTitle", "rhatGeo"}
	n := NewNormalizer(schema)

	entry := personEntry("alice", map[string][]string{
		"rhatJobTitle": {"Engineer"},
		"rhatGeo":      {"EMEA", "APAC"},
		"rhatLocation": {"Brno"},
	})
	person := n.Person(entry)

	require.NotNil(t, person.Extensions)
	assert.Equal(t, "Engineer", person.Extensions["rhatJobTitle"])
	assert.Equal(t, []string{"EMEA", "APAC"}, person.Extensions["rhatGeo"])

	// rhatLocation is not in the configured extension list.
	assert.NotContains(t, person.Extensions, "rhatLocation")
}

func TestPersonExtensionsAbsentWhenUnconfigured(t *testing.T) {
	n := NewNormalizer(config.New().Schema)

	entry := personEntry("alice", map[string][]string{
		"rhatJobTitle": {"Engineer"},
	})
	person := n.Person(entry)

	assert.Nil(t, person.Extensions)
	// The precedence chain still applies to whatever was returned.
	assert.Equal(t, "Engineer", person.Title)
}

func TestPersonSID(t *testing.T) {
	n := extendedNormalizer()

	t.Run("string form passes through", func(t *testing.T) {
		entry := personEntry("alice", map[string][]string{
			"objectSid": {"S-1-5-21-1-2-3-500"},
		})
		assert.Equal(t, "S-1-5-21-1-2-3-500", n.Person(entry).SID)
	})

	t.Run("binary form is decoded", func(t *testing.T) {
		raw := []byte{
			0x01, 0x05, // revision, five sub-authorities
			0x00, 0x00, 0x00, 0x00, 0x00, 0x05, // NT authority
			0x15, 0x00, 0x00, 0x00, // 21
			0x01, 0x00, 0x00, 0x00,
			0x02, 0x00, 0x00, 0x00,
			0x03, 0x00, 0x00, 0x00,
			0xF4, 0x01, 0x00, 0x00, // 500
		}
		entry := personEntry("alice", map[string][]string{
			"objectSid": {string(raw)},
		})
		assert.Equal(t, "S-1-5-21-1-2-3-500", n.Person(entry).SID)
	})

	t.Run("malformed binary yields empty", func(t *testing.T) {
		entry := personEntry("alice", map[string][]string{
			"objectSid": {string([]byte{0x01, 0x05, 0x00, 0x00})},
		})
		assert.Empty(t, n.Person(entry).SID)
	})

	t.Run("absent attribute yields empty", func(t *testing.T) {
		assert.Empty(t, n.Person(personEntry("alice", nil)).SID)
	})
}

func TestPersonSummaryPrecedence(t *testing.T) {
	n := extendedNormalizer()

	entry := personEntry("alice", map[string][]string{
		"cn":                 {"Alice Smith"},
		"title":              {"Software Engineer"},
		"rhatJobTitle":       {"Engineer"},
		"rhatCostCenterDesc": {"Platform"},
		"co":                 {"Czech Republic"},
	})
	summary := n.PersonSummary(entry)

	assert.Equal(t, "alice", summary.UID)
	assert.Equal(t, "Alice Smith", summary.CN)
	assert.Equal(t, "Engineer", summary.Title)
	assert.Equal(t, "Platform", summary.Department)
	assert.Equal(t, "Czech Republic", summary.Country)
}

func TestSummaryOfPerson(t *testing.T) {
	person := &Person{
		UID:        "alice",
		CN:         "Alice Smith",
		Title:      "Engineer",
		Department: "Platform",
		Country:    "Czech Republic",
		Mail:       "alice@example.com",
	}
	summary := SummaryOf(person)

	assert.Equal(t, &PersonSummary{
		UID:        "alice",
		CN:         "Alice Smith",
		Title:      "Engineer",
		Department: "Platform",
		Country:    "Czech Republic",
	}, summary)
}

func TestGroupNormalization(t *testing.T) {
	n := extendedNormalizer()

	entry := groupEntry("platform-admins", map[string][]string{
		"description": {"Platform administrators"},
		"member": {
			"uid=alice,ou=users,dc=example,dc=com",
			"uid=bob,ou=users,dc=example,dc=com",
		},
		"uniqueMember": {"uid=alice,ou=users,dc=example,dc=com"},
		"memberUid":    {"carol"},
		"gidNumber":    {"5000"},
	})
	group := n.Group(entry)

	assert.Equal(t, "platform-admins", group.CN)
	assert.Equal(t, "cn=platform-admins,ou=groups,dc=example,dc=com", group.DN)
	assert.Equal(t, "Platform administrators", group.Description)
	assert.Equal(t, "5000", group.GidNumber)

	// The count sums the raw membership attributes; overlap between
	// conventions is not collapsed here.
	assert.Equal(t, 4, group.MemberCount)
	assert.Equal(t, []string{
		"uid=alice,ou=users,dc=example,dc=com",
		"uid=bob,ou=users,dc=example,dc=com",
		"uid=alice,ou=users,dc=example,dc=com",
		"carol",
	}, group.Members)
}

func TestGroupDescriptionFallsBackToDisplayName(t *testing.T) {
	n := extendedNormalizer()

	entry := groupEntry("infra", map[string][]string{
		"displayName": {"Infrastructure Team"},
	})
	assert.Equal(t, "Infrastructure Team", n.Group(entry).Description)
}

func TestGroupMemberSampleCapped(t *testing.T) {
	n := extendedNormalizer()

	members := make([]string, 60)
	for i := range members {
		members[i] = fmt.Sprintf("uid=user%02d,ou=users,dc=example,dc=com", i)
	}
	group := n.Group(groupEntry("everyone", map[string][]string{
		"member": members,
	}))

	assert.Equal(t, 60, group.MemberCount)
	assert.Len(t, group.Members, 50)
	assert.Equal(t, members[0], group.Members[0])
	assert.Equal(t, members[49], group.Members[49])
}

func TestPersonAttributesDeduplicated(t *testing.T) {
	cfg := config.New()
	// The default corporate set overlaps the base set on employeeNumber
	// and employeeType.
	attrs := personAttributes(cfg.Schema)

	counts := make(map[string]int)
	for _, attr := range attrs {
		counts[attr]++
	}
	assert.Equal(t, 1, counts["employeeNumber"])
	assert.Equal(t, 1, counts["employeeType"])
	assert.Equal(t, 1, counts["departmentNumber"])
	assert.Contains(t, attrs, "uid")
	assert.Contains(t, attrs, "manager")
}
