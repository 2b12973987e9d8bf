package directory

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

const (
	largeLocationMin  = 100
	mediumLocationMin = 20
)

var locationAttributes = []string{
	attrUID,
	attrCN,
	attrOffice,
	extLocation,
	attrCity,
	attrState,
	attrCountry,
}

var peopleAtLocationAttributes = []string{
	attrUID,
	attrCN,
	attrSurname,
	attrGivenName,
	attrMail,
	attrTitle,
	attrDepartment,
	attrPhone,
	attrOffice,
	extLocation,
	attrCity,
	attrState,
	attrCountry,
}

// LocationAggregate is one office location with its head count and the
// geography observed across its people.
type LocationAggregate struct {
	Name        string `json:"name"`
	PeopleCount int    `json:"peopleCount"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
}

// LocationSizes is a head-count histogram: large is 100 people or more,
// medium is 20 to 99, small is under 20.
type LocationSizes struct {
	Large  int `json:"large"`
	Medium int `json:"medium"`
	Small  int `json:"small"`
}

// LocationStats summarises the directory's office footprint.
type LocationStats struct {
	TotalLocations           int                `json:"totalLocations"`
	TotalPeopleWithLocation  int                `json:"totalPeopleWithLocation"`
	LargestLocation          *LocationAggregate `json:"largestLocation,omitempty"`
	AveragePeoplePerLocation float64            `json:"averagePeoplePerLocation"`
	LocationsBySize          LocationSizes      `json:"locationsBySize"`
}

// LocationResolver aggregates people by office location.
type LocationResolver struct {
	search  Searcher
	people  *PeopleResolver
	norm    *Normalizer
	filters *FilterBuilder
	log     ldap.Logger
}

func NewLocationResolver(search Searcher, people *PeopleResolver, cfg *config.Config, log ldap.Logger) *LocationResolver {
	if log == nil {
		log = ldap.NewNopLogger()
	}
	return &LocationResolver{
		search:  search,
		people:  people,
		norm:    NewNormalizer(cfg.Schema),
		filters: NewFilterBuilder(cfg.Schema),
		log:     log,
	}
}

// FindLocations buckets people by office location and returns the
// buckets sorted by descending head count. Entries without a uid or
// without any location attribute are skipped. The office name falls
// back from physicalDeliveryOfficeName through the schema's location
// extension to the city.
func (r *LocationResolver) FindLocations(ctx context.Context, query string) ([]*LocationAggregate, error) {
	entries, err := r.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     r.people.searchBase(ctx),
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     r.filters.LocationSearch(query),
		Attributes: locationAttributes,
	})
	if err != nil {
		return nil, err
	}

	type bucket struct {
		count     int
		cities    map[string]bool
		states    map[string]bool
		countries map[string]bool
	}
	buckets := make(map[string]*bucket)

	for _, e := range entries {
		if e.GetString(attrUID) == "" {
			continue
		}
		office := firstNonEmpty(e.GetString(attrOffice), e.GetString(extLocation), e.GetString(attrCity))
		if office == "" {
			continue
		}

		b := buckets[office]
		if b == nil {
			b = &bucket{
				cities:    make(map[string]bool),
				states:    make(map[string]bool),
				countries: make(map[string]bool),
			}
			buckets[office] = b
		}
		b.count++
		if city := e.GetString(attrCity); city != "" {
			b.cities[city] = true
		}
		if state := e.GetString(attrState); state != "" {
			b.states[state] = true
		}
		if country := e.GetString(attrCountry); country != "" {
			b.countries[country] = true
		}
	}

	locations := make([]*LocationAggregate, 0, len(buckets))
	for name, b := range buckets {
		locations = append(locations, &LocationAggregate{
			Name:        name,
			PeopleCount: b.count,
			City:        joinSorted(b.cities),
			State:       joinSorted(b.states),
			Country:     joinSorted(b.countries),
		})
	}
	sort.SliceStable(locations, func(i, j int) bool {
		if locations[i].PeopleCount != locations[j].PeopleCount {
			return locations[i].PeopleCount > locations[j].PeopleCount
		}
		return locations[i].Name < locations[j].Name
	})

	r.log.Info("location search completed", map[string]any{"query": query, "count": len(locations)})
	return locations, nil
}

// PeopleAtLocation returns the people at a named location, sorted by
// common name.
func (r *LocationResolver) PeopleAtLocation(ctx context.Context, location string, maxResults int) ([]*Person, error) {
	entries, err := r.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     r.people.searchBase(ctx),
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     r.filters.PeopleAtLocation(location),
		Attributes: peopleAtLocationAttributes,
		SizeLimit:  maxResults,
	})
	if err != nil {
		return nil, err
	}

	people := make([]*Person, 0, len(entries))
	for _, e := range entries {
		people = append(people, r.norm.Person(e))
	}
	sort.SliceStable(people, func(i, j int) bool { return people[i].CN < people[j].CN })

	r.log.Info("people at location resolved", map[string]any{"location": location, "count": len(people)})
	return people, nil
}

// LocationHierarchy builds a country -> state -> city -> office head
// count. Missing geography collapses into "Unknown" at each level.
func (r *LocationResolver) LocationHierarchy(ctx context.Context) (map[string]map[string]map[string]map[string]int, error) {
	entries, err := r.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     r.people.searchBase(ctx),
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     r.filters.PersonQuery(""),
		Attributes: locationAttributes,
	})
	if err != nil {
		return nil, err
	}

	hierarchy := make(map[string]map[string]map[string]map[string]int)
	for _, e := range entries {
		country := orUnknown(e.GetString(attrCountry))
		state := orUnknown(e.GetString(attrState))
		city := orUnknown(e.GetString(attrCity))
		office := orUnknown(firstNonEmpty(e.GetString(attrOffice), e.GetString(extLocation)))

		states, ok := hierarchy[country]
		if !ok {
			states = make(map[string]map[string]map[string]int)
			hierarchy[country] = states
		}
		cities, ok := states[state]
		if !ok {
			cities = make(map[string]map[string]int)
			states[state] = cities
		}
		offices, ok := cities[city]
		if !ok {
			offices = make(map[string]int)
			cities[city] = offices
		}
		offices[office]++
	}

	r.log.Info("location hierarchy built", map[string]any{"countries": len(hierarchy)})
	return hierarchy, nil
}

// NearestColleagues returns other people sharing a person's office
// location. An unknown person or one without a location yields an
// empty result.
func (r *LocationResolver) NearestColleagues(ctx context.Context, personID string, maxResults int) ([]*Person, error) {
	person, ok, err := r.people.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.log.Warn("person not found", map[string]any{"identifier": personID})
		return []*Person{}, nil
	}
	if person.OfficeLocation == "" {
		r.log.Warn("person has no office location", map[string]any{"uid": person.UID})
		return []*Person{}, nil
	}

	// Fetch one extra so the person themselves can be dropped without
	// shorting the result.
	colleagues, err := r.PeopleAtLocation(ctx, person.OfficeLocation, maxResults+1)
	if err != nil {
		return nil, err
	}

	others := make([]*Person, 0, len(colleagues))
	for _, colleague := range colleagues {
		if samePerson(colleague, person) {
			continue
		}
		others = append(others, colleague)
	}
	if maxResults > 0 && len(others) > maxResults {
		others = others[:maxResults]
	}
	return others, nil
}

// Stats summarises every location bucket in the directory.
func (r *LocationResolver) Stats(ctx context.Context) (*LocationStats, error) {
	locations, err := r.FindLocations(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return &LocationStats{}, nil
	}

	total := lo.SumBy(locations, func(loc *LocationAggregate) int { return loc.PeopleCount })

	sizes := LocationSizes{}
	for _, loc := range locations {
		switch {
		case loc.PeopleCount >= largeLocationMin:
			sizes.Large++
		case loc.PeopleCount >= mediumLocationMin:
			sizes.Medium++
		default:
			sizes.Small++
		}
	}

	return &LocationStats{
		TotalLocations:           len(locations),
		TotalPeopleWithLocation:  total,
		LargestLocation:          locations[0],
		AveragePeoplePerLocation: float64(total) / float64(len(locations)),
		LocationsBySize:          sizes,
	}, nil
}

func joinSorted(set map[string]bool) string {
	if len(set) == 0 {
		return ""
	}
	values := lo.Keys(set)
	sort.Strings(values)
	return strings.Join(values, ", ")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
