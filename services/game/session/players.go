// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"fmt"

	"github.com/jinterlante1206/DefuseLocal/services/game/datatypes"
)

// NewAgentPlayer builds the session's agent. The agent label is fixed.
func NewAgentPlayer(agentID string) datatypes.Player {
	return datatypes.Player{
		ID:    agentID,
		Role:  datatypes.RoleAgent,
		Label: "agent",
	}
}

// NewOperatorPlayer builds an operator numbered after the operators
// already present. Labels are assigned at join time and never
// renumbered when an earlier operator leaves.
func NewOperatorPlayer(operatorID string, existing []datatypes.Player) datatypes.Player {
	count := 0
	for _, p := range existing {
		if p.Role == datatypes.RoleOperator {
			count++
		}
	}
	return datatypes.Player{
		ID:    operatorID,
		Role:  datatypes.RoleOperator,
		Label: fmt.Sprintf("operator %d", count+1),
	}
}
