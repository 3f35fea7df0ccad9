// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ModuleManual is a static puzzle definition. The core never mutates
// manuals; it samples them at game start and strips Solutions before
// broadcasting to clients.
type ModuleManual struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rules       string   `json:"rules"`
	ImgURL      string   `json:"imgUrl,omitempty"`
	Solutions   []string `json:"solutions,omitempty"`
}

// ID returns the manual's stable identifier. Manuals are keyed by name;
// there is no separate database id.
func (m ModuleManual) ID() string {
	return m.Name
}

// WithoutSolutions returns a copy safe to broadcast to every player:
// same manual, nil solution steps.
func (m ModuleManual) WithoutSolutions() ModuleManual {
	m.Solutions = nil
	return m
}
