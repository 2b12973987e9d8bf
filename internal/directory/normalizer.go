package directory

import (
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/samber/lo"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

// Standard person and group attribute names.
const (
	attrUID            = "uid"
	attrCN             = "cn"
	attrSurname        = "sn"
	attrGivenName      = "givenName"
	attrDisplayName    = "displayName"
	attrMail           = "mail"
	attrTitle          = "title"
	attrManager        = "manager"
	attrPhone          = "telephoneNumber"
	attrMobile         = "mobile"
	attrOffice         = "physicalDeliveryOfficeName"
	attrCity           = "l"
	attrState          = "st"
	attrCountry        = "co"
	attrEmployeeNumber = "employeeNumber"
	attrEmployeeType   = "employeeType"
	attrDepartment     = "department"
	attrDescription    = "description"
	attrMember         = "member"
	attrUniqueMember   = "uniqueMember"
	attrMemberUID      = "memberUid"
	attrGIDNumber      = "gidNumber"
	attrObjectSID      = "objectSid"
)

// Corporate extension attributes. They participate in the precedence
// chains below; whether they are requested at all is controlled by the
// schema configuration's extension_attributes list.
const (
	extJobTitle       = "rhatJobTitle"
	extCostCenter     = "rhatCostCenter"
	extCostCenterDesc = "rhatCostCenterDesc"
	extLocation       = "rhatLocation"
	extPersonType     = "rhatPersonType"
	extWorkerID       = "rhatWorkerId"
)

// memberSampleLimit caps the member sample carried on a Group. The
// member count is always computed over the full membership.
const memberSampleLimit = 50

var basePersonAttributes = []string{
	attrUID,
	attrCN,
	attrSurname,
	attrGivenName,
	attrDisplayName,
	attrMail,
	attrTitle,
	attrManager,
	attrPhone,
	attrMobile,
	attrOffice,
	attrCity,
	attrState,
	attrCountry,
	attrEmployeeNumber,
	attrEmployeeType,
}

var personSummaryAttributes = []string{
	attrUID,
	attrCN,
	attrTitle,
	extJobTitle,
	extCostCenterDesc,
	attrCountry,
}

// personAttributes is the full request list for person entries: the
// standard set plus whatever the deployment's schema adds.
func personAttributes(schema config.SchemaConfig) []string {
	attrs := make([]string, 0, len(basePersonAttributes)+len(schema.CorporateAttributes)+len(schema.ExtensionAttributes))
	attrs = append(attrs, basePersonAttributes...)
	attrs = append(attrs, schema.CorporateAttributes...)
	attrs = append(attrs, schema.ExtensionAttributes...)
	return lo.Uniq(attrs)
}

// Person is the canonical person entity. Fields absent in the source
// record stay zero-valued and are omitted from JSON output, so key
// presence signals "known".
type Person struct {
	UID            string         `json:"uid,omitempty"`
	DN             string         `json:"dn,omitempty"`
	CN             string         `json:"cn,omitempty"`
	DisplayName    string         `json:"displayName,omitempty"`
	GivenName      string         `json:"givenName,omitempty"`
	Surname        string         `json:"surname,omitempty"`
	Mail           string         `json:"mail,omitempty"`
	Title          string         `json:"title,omitempty"`
	Department     string         `json:"department,omitempty"`
	Manager        string         `json:"manager,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Mobile         string         `json:"mobile,omitempty"`
	OfficeLocation string         `json:"officeLocation,omitempty"`
	City           string         `json:"city,omitempty"`
	State          string         `json:"state,omitempty"`
	Country        string         `json:"country,omitempty"`
	EmployeeID     string         `json:"employeeId,omitempty"`
	EmployeeType   string         `json:"employeeType,omitempty"`
	CostCenter     string         `json:"costCenter,omitempty"`
	SID            string         `json:"sid,omitempty"`
	Extensions     map[string]any `json:"extensions,omitempty"`
}

// PersonSummary is the lightweight projection used by list-heavy
// operations.
type PersonSummary struct {
	UID        string `json:"uid,omitempty"`
	CN         string `json:"cn,omitempty"`
	Title      string `json:"title,omitempty"`
	Department string `json:"department,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Group is the canonical group entity. Members is a bounded sample;
// MemberCount covers the full membership across all three membership
// attribute conventions.
type Group struct {
	CN          string   `json:"cn,omitempty"`
	DN          string   `json:"dn,omitempty"`
	Description string   `json:"description,omitempty"`
	MemberCount int      `json:"memberCount"`
	Members     []string `json:"members,omitempty"`
	GidNumber   string   `json:"gidNumber,omitempty"`
}

// Normalizer reduces raw directory entries to canonical entities,
// applying the attribute precedence chains that reconcile the standard
// schema with the corporate extension set.
type Normalizer struct {
	extensionAttrs []string
}

func NewNormalizer(schema config.SchemaConfig) *Normalizer {
	return &Normalizer{extensionAttrs: schema.ExtensionAttributes}
}

// Person maps a raw entry to a Person. Precedence: the extension job
// title beats the generic title, the extension cost-center description
// beats the department attribute, and the office location falls through
// physicalDeliveryOfficeName, the extension location and the locality.
func (n *Normalizer) Person(e *ldap.Entry) *Person {
	p := &Person{
		UID:            n.uid(e),
		DN:             e.DN,
		CN:             e.GetString(attrCN),
		DisplayName:    e.GetString(attrDisplayName),
		GivenName:      e.GetString(attrGivenName),
		Surname:        e.GetString(attrSurname),
		Mail:           e.GetString(attrMail),
		Title:          firstNonEmpty(e.GetString(extJobTitle), e.GetString(attrTitle)),
		Department:     firstNonEmpty(e.GetString(extCostCenterDesc), e.GetString(attrDepartment)),
		Manager:        e.GetString(attrManager),
		Phone:          e.GetString(attrPhone),
		Mobile:         e.GetString(attrMobile),
		OfficeLocation: firstNonEmpty(e.GetString(attrOffice), e.GetString(extLocation), e.GetString(attrCity)),
		City:           e.GetString(attrCity),
		State:          e.GetString(attrState),
		Country:        e.GetString(attrCountry),
		EmployeeID:     firstNonEmpty(e.GetString(attrEmployeeNumber), e.GetString(extWorkerID)),
		EmployeeType:   firstNonEmpty(e.GetString(attrEmployeeType), e.GetString(extPersonType)),
		CostCenter:     e.GetString(extCostCenter),
		SID:            decodeSID(e),
	}

	if len(n.extensionAttrs) > 0 {
		ext := make(map[string]any, len(n.extensionAttrs))
		for _, attr := range n.extensionAttrs {
			if v, ok := e.Get(attr); ok {
				ext[attr] = v
			}
		}
		if len(ext) > 0 {
			p.Extensions = ext
		}
	}

	return p
}

// PersonSummary maps a raw entry to a PersonSummary using the same
// precedence rules as Person.
func (n *Normalizer) PersonSummary(e *ldap.Entry) *PersonSummary {
	return &PersonSummary{
		UID:        n.uid(e),
		CN:         e.GetString(attrCN),
		Title:      firstNonEmpty(e.GetString(extJobTitle), e.GetString(attrTitle)),
		Department: firstNonEmpty(e.GetString(extCostCenterDesc), e.GetString(attrDepartment)),
		Country:    e.GetString(attrCountry),
	}
}

// SummaryOf projects an already-normalized Person.
func SummaryOf(p *Person) *PersonSummary {
	return &PersonSummary{
		UID:        p.UID,
		CN:         p.CN,
		Title:      p.Title,
		Department: p.Department,
		Country:    p.Country,
	}
}

// Group maps a raw entry to a Group.
func (n *Normalizer) Group(e *ldap.Entry) *Group {
	g := &Group{
		CN:          e.GetString(attrCN),
		DN:          e.DN,
		Description: firstNonEmpty(e.GetString(attrDescription), e.GetString(attrDisplayName)),
		GidNumber:   e.GetString(attrGIDNumber),
	}

	var members []string
	for _, attr := range []string{attrMember, attrUniqueMember, attrMemberUID} {
		members = append(members, e.GetStrings(attr)...)
	}
	g.MemberCount = len(members)
	if len(members) > memberSampleLimit {
		members = members[:memberSampleLimit]
	}
	g.Members = members

	return g
}

// uid prefers the uid attribute and falls back to the uid= component of
// the DN.
func (n *Normalizer) uid(e *ldap.Entry) string {
	if uid := e.GetString(attrUID); uid != "" {
		return uid
	}
	return ldap.ExtractRDNValue(e.DN, attrUID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// decodeSID renders an objectSid value as an S-1-... string. Directory
// servers return the attribute as raw binary; fixture data may already
// carry the string form.
func decodeSID(e *ldap.Entry) string {
	raw := e.GetString(attrObjectSID)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "S-") {
		return raw
	}

	b := []byte(raw)
	// 8-byte header followed by b[1] four-byte sub-authorities.
	if len(b) < 8 || len(b) != 8+4*int(b[1]) {
		return ""
	}
	return objectsid.Decode(b).String()
}
