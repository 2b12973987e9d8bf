package directory

import (
	"context"
	"strings"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

// maxChainDepth caps manager-chain traversal. The visited-DN guard
// breaks cycles; the cap is the independent bound against chains the
// guard cannot see.
const maxChainDepth = 10

// OrgNode is one node of an organization chart.
type OrgNode struct {
	Person        *Person    `json:"person"`
	DirectReports []*OrgNode `json:"directReports"`
	Level         int        `json:"level"`
}

// Size returns the total number of people in the subtree, the node
// itself included.
func (n *OrgNode) Size() int {
	count := 1
	for _, child := range n.DirectReports {
		count += child.Size()
	}
	return count
}

// OrgSummaryNode mirrors OrgNode with summary-shaped people.
type OrgSummaryNode struct {
	Person        *PersonSummary    `json:"person"`
	DirectReports []*OrgSummaryNode `json:"directReports"`
	Level         int               `json:"level"`
}

// TeamStructure is the immediate reporting neighborhood of a person.
type TeamStructure struct {
	Person        *Person   `json:"person"`
	Manager       *Person   `json:"manager,omitempty"`
	Peers         []*Person `json:"peers"`
	DirectReports []*Person `json:"directReports"`
}

// OrgResolver answers reporting-structure queries: manager chains,
// direct reports, org charts and common managers.
type OrgResolver struct {
	search  Searcher
	people  *PeopleResolver
	cfg     *config.Config
	norm    *Normalizer
	filters *FilterBuilder
	log     ldap.Logger
}

func NewOrgResolver(search Searcher, people *PeopleResolver, cfg *config.Config, log ldap.Logger) *OrgResolver {
	if log == nil {
		log = ldap.NewNopLogger()
	}
	return &OrgResolver{
		search:  search,
		people:  people,
		cfg:     cfg,
		norm:    NewNormalizer(cfg.Schema),
		filters: NewFilterBuilder(cfg.Schema),
		log:     log,
	}
}

// GetManagerChain walks the manager references upward from a person,
// immediate manager first. The walk stops when a reference is absent,
// points at an already-visited entry, or the chain reaches
// maxChainDepth. An unknown starting person yields an empty chain.
func (o *OrgResolver) GetManagerChain(ctx context.Context, personID string) ([]*Person, error) {
	person, ok, err := o.people.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if !ok {
		o.log.Warn("person not found", map[string]any{"identifier": personID})
		return []*Person{}, nil
	}

	chain := []*Person{}
	visited := map[string]bool{strings.ToLower(person.DN): true}
	current := person

	for len(chain) < maxChainDepth {
		managerDN := current.Manager
		if managerDN == "" {
			break
		}
		if visited[strings.ToLower(managerDN)] {
			break
		}

		manager, ok, err := o.people.GetPerson(ctx, managerDN)
		if err != nil {
			return nil, err
		}
		if !ok {
			o.log.Warn("manager not found", map[string]any{"manager_dn": managerDN})
			break
		}

		chain = append(chain, manager)
		visited[strings.ToLower(managerDN)] = true
		visited[strings.ToLower(manager.DN)] = true
		current = manager
	}

	return chain, nil
}

// FindDirectReports returns the people whose manager reference is the
// resolved manager's DN. The manager's own record is excluded should
// the directory contain a self-referential match.
func (o *OrgResolver) FindDirectReports(ctx context.Context, managerID string) ([]*Person, error) {
	manager, ok, err := o.people.GetPerson(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		o.log.Warn("manager not found", map[string]any{"identifier": managerID})
		return []*Person{}, nil
	}
	return o.reportsFor(ctx, manager)
}

func (o *OrgResolver) reportsFor(ctx context.Context, manager *Person) ([]*Person, error) {
	entries, err := o.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     o.people.searchBase(ctx),
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     o.filters.DirectReports(manager.DN),
		Attributes: personAttributes(o.cfg.Schema),
	})
	if err != nil {
		return nil, err
	}

	reports := make([]*Person, 0, len(entries))
	for _, e := range entries {
		person := o.norm.Person(e)
		if samePerson(person, manager) {
			continue
		}
		reports = append(reports, person)
	}
	return reports, nil
}

// BuildOrgChart expands the reporting tree below a manager. Depth 0 is
// the manager alone; expansion stops at maxDepth levels. Failures to
// list one node's reports are logged and leave that node childless
// rather than failing the chart.
func (o *OrgResolver) BuildOrgChart(ctx context.Context, managerID string, maxDepth int) (*OrgNode, bool, error) {
	manager, ok, err := o.people.GetPerson(ctx, managerID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		o.log.Warn("manager not found", map[string]any{"identifier": managerID})
		return nil, false, nil
	}

	node := o.buildNode(ctx, manager, 0, maxDepth)
	o.log.Info("org chart built", map[string]any{"root": manager.UID, "people": node.Size()})
	return node, true, nil
}

func (o *OrgResolver) buildNode(ctx context.Context, person *Person, depth, maxDepth int) *OrgNode {
	node := &OrgNode{
		Person:        person,
		DirectReports: []*OrgNode{},
		Level:         depth,
	}
	if depth >= maxDepth {
		return node
	}

	reports, err := o.reportsFor(ctx, person)
	if err != nil {
		o.log.Warn("skipping reports for node", map[string]any{"dn": person.DN, "error": err.Error()})
		return node
	}
	for _, report := range reports {
		node.DirectReports = append(node.DirectReports, o.buildNode(ctx, report, depth+1, maxDepth))
	}
	return node
}

// BuildOrgChartSummary is BuildOrgChart projected to summary nodes.
func (o *OrgResolver) BuildOrgChartSummary(ctx context.Context, managerID string, maxDepth int) (*OrgSummaryNode, bool, error) {
	node, ok, err := o.BuildOrgChart(ctx, managerID, maxDepth)
	if err != nil || !ok {
		return nil, ok, err
	}
	return summarizeNode(node), true, nil
}

func summarizeNode(node *OrgNode) *OrgSummaryNode {
	summary := &OrgSummaryNode{
		Person:        SummaryOf(node.Person),
		DirectReports: make([]*OrgSummaryNode, 0, len(node.DirectReports)),
		Level:         node.Level,
	}
	for _, child := range node.DirectReports {
		summary.DirectReports = append(summary.DirectReports, summarizeNode(child))
	}
	return summary
}

// TeamStructure resolves the reporting neighborhood of a person: their
// manager, the manager's other reports as peers, and their own direct
// reports. Failures listing peers or reports degrade to empty lists.
func (o *OrgResolver) TeamStructure(ctx context.Context, personID string) (*TeamStructure, bool, error) {
	person, ok, err := o.people.GetPerson(ctx, personID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	team := &TeamStructure{
		Person:        person,
		Peers:         []*Person{},
		DirectReports: []*Person{},
	}

	if person.Manager != "" {
		manager, ok, err := o.people.GetPerson(ctx, person.Manager)
		if err != nil {
			return nil, false, err
		}
		if ok {
			team.Manager = manager
			peers, err := o.reportsFor(ctx, manager)
			if err != nil {
				o.log.Warn("skipping peers", map[string]any{"dn": manager.DN, "error": err.Error()})
			} else {
				for _, peer := range peers {
					if samePerson(peer, person) {
						continue
					}
					team.Peers = append(team.Peers, peer)
				}
			}
		}
	}

	reports, err := o.reportsFor(ctx, person)
	if err != nil {
		o.log.Warn("skipping direct reports", map[string]any{"dn": person.DN, "error": err.Error()})
	} else {
		team.DirectReports = reports
	}

	return team, true, nil
}

// FindCommonManager intersects two manager chains and returns the entry
// nearest to the first person, in their chain's traversal order.
func (o *OrgResolver) FindCommonManager(ctx context.Context, firstID, secondID string) (*Person, bool, error) {
	first, err := o.GetManagerChain(ctx, firstID)
	if err != nil {
		return nil, false, err
	}
	second, err := o.GetManagerChain(ctx, secondID)
	if err != nil {
		return nil, false, err
	}
	if len(first) == 0 || len(second) == 0 {
		return nil, false, nil
	}

	inSecond := make(map[string]bool, len(second))
	for _, manager := range second {
		if manager.UID != "" {
			inSecond[manager.UID] = true
		}
	}
	for _, manager := range first {
		if manager.UID != "" && inSecond[manager.UID] {
			return manager, true, nil
		}
	}
	return nil, false, nil
}

// samePerson matches by uid when both carry one, falling back to DN
// equivalence.
func samePerson(a, b *Person) bool {
	if a.UID != "" && b.UID != "" && a.UID == b.UID {
		return true
	}
	return a.DN != "" && b.DN != "" && ldap.EqualDN(a.DN, b.DN)
}
