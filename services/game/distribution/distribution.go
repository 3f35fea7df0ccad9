// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package distribution fans puzzle solution steps out across operators.
//
// Distribution happens once at game start: each module's ordered steps
// are dealt round-robin over the operator list, so every operator holds
// a disjoint share of the answers and must relay them out-of-band.
//
// Everything here is pure. Identical module set + identical operator
// order must yield an identical distribution; debugging and fairness
// both depend on that.
package distribution

import "github.com/jinterlante1206/DefuseLocal/services/game/datatypes"

// SolutionsDistribution is the per-module allocation of solution steps
// to operators.
type SolutionsDistribution struct {
	ModuleID    string              `json:"moduleId"`
	Allocations map[string][]string `json:"allocations"`
}

// OperatorModuleSolutions is one module's steps as seen by a single
// operator.
type OperatorModuleSolutions struct {
	ModuleID  string   `json:"moduleId"`
	Solutions []string `json:"solutions"`
}

// Distribute deals each module's steps across the recipients.
//
// # Description
//
// For each module independently, step i goes to recipients[i % len].
// Each recipient's steps keep their original order. Every recipient
// gets an entry in the allocation map, even when it ends up empty
// (zero steps, or more recipients than steps).
//
// # Inputs
//
//   - modules: Sampled manuals, with solutions attached.
//   - recipientIDs: Operator ids in current session join order.
//
// # Outputs
//
//   - []SolutionsDistribution: One entry per module, in module order.
func Distribute(modules []datatypes.ModuleManual, recipientIDs []string) []SolutionsDistribution {
	out := make([]SolutionsDistribution, 0, len(modules))
	for _, module := range modules {
		allocations := make(map[string][]string, len(recipientIDs))
		for _, id := range recipientIDs {
			allocations[id] = []string{}
		}

		if len(recipientIDs) > 0 {
			for idx, step := range module.Solutions {
				target := recipientIDs[idx%len(recipientIDs)]
				allocations[target] = append(allocations[target], step)
			}
		}

		out = append(out, SolutionsDistribution{
			ModuleID:    module.ID(),
			Allocations: allocations,
		})
	}
	return out
}

// ByOperator regroups a distribution into a per-operator view.
//
// # Description
//
// Each operator receives an ordered list of {moduleId, solutions}
// pairs, one per module, in module-sample order.
func ByOperator(dists []SolutionsDistribution) map[string][]OperatorModuleSolutions {
	byOperator := make(map[string][]OperatorModuleSolutions)
	for _, dist := range dists {
		for operatorID, steps := range dist.Allocations {
			byOperator[operatorID] = append(byOperator[operatorID], OperatorModuleSolutions{
				ModuleID:  dist.ModuleID,
				Solutions: steps,
			})
		}
	}
	return byOperator
}
