package core

import (
	"context"
	"fmt"
	"sort"

	"contrastcore/pkg/domain"
)

// NewReplicationRule returns the default in-transaction rule warning when a
// study's factor-level combination has fewer than minReplicates samples.
// Dispersion estimation degrades sharply without replication, so combinations
// below the floor are flagged but not blocked.
func NewReplicationRule(minReplicates int) domain.Rule {
	if minReplicates < 1 {
		minReplicates = 2
	}
	return replicationRule{min: minReplicates}
}

type replicationRule struct {
	min int
}

func (replicationRule) Name() string { return "replication" }

func (r replicationRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, study := range view.ListStudies() {
		if len(study.Factors) == 0 {
			continue
		}
		// Every combination of declared levels must reach the floor, so
		// start from the full cartesian product: combinations no sample
		// occupies are exactly the unestimable ones.
		occupancy := make(map[string]int)
		total := 1
		for _, f := range study.Factors {
			total *= len(f.Levels)
		}
		for n := 0; n < total; n++ {
			rem := n
			levels := make([]string, len(study.Factors))
			for j, f := range study.Factors {
				levels[j] = f.Levels[rem%len(f.Levels)]
				rem /= len(f.Levels)
			}
			occupancy[domain.GroupLabel(levels)] = 0
		}
		for i := range study.Samples {
			levels := make([]string, len(study.Factors))
			complete := true
			for j, f := range study.Factors {
				if i >= len(f.Assignments) {
					complete = false
					break
				}
				levels[j] = f.Assignments[i]
			}
			if !complete {
				continue
			}
			occupancy[domain.GroupLabel(levels)]++
		}
		groups := make([]string, 0, len(occupancy))
		for group := range occupancy {
			groups = append(groups, group)
		}
		sort.Strings(groups)
		for _, group := range groups {
			if count := occupancy[group]; count < r.min {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "replication",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("study %s group %s has %d replicates, want at least %d", study.ID, group, count, r.min),
					Entity:   domain.EntityStudy,
					EntityID: study.ID,
				})
			}
		}
	}
	return res, nil
}
