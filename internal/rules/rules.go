// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package rules loads and evaluates the auto-triage exception rule file.
// Each rule keeps findings matching a title regex in a team's report even
// when the team's filter policy would drop them.
package rules

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Rule is one exception: a team key (or "*" wildcard) and a title pattern.
type Rule struct {
	Team    string
	Pattern *regexp.Regexp
}

// Set holds all loaded exception rules. The zero value matches nothing.
type Set struct {
	rules []Rule
}

// Load reads the rule file at path. A missing file is not an error: it
// yields an empty set, matching the "no exceptions configured" case.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening exception rules: %w", err)
	}
	defer f.Close()

	s := &Set{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("exception rule line %d: want <team> <pattern>, got %q", lineNo, line)
		}
		// Everything after the team key is the pattern; titles contain spaces.
		pat, err := regexp.Compile(strings.Join(fields[1:], " "))
		if err != nil {
			return nil, fmt.Errorf("exception rule line %d: %w", lineNo, err)
		}
		s.rules = append(s.rules, Rule{Team: fields[0], Pattern: pat})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exception rules: %w", err)
	}
	return s, nil
}

// Match reports whether any rule for the given team (or the wildcard team)
// matches the finding title. Patterns are anchored at the start of the
// title, matching regexp match-from-beginning semantics of the rule format.
func (s *Set) Match(team, title string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.rules {
		if r.Team != team && r.Team != "*" {
			continue
		}
		loc := r.Pattern.FindStringIndex(title)
		if loc != nil && loc[0] == 0 {
			return true
		}
	}
	return false
}

// Len returns the number of loaded rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}
