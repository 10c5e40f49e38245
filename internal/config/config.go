// Package config loads the team audit configuration file.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// DefaultPath is where the inactive users configuration lives in the repository.
const DefaultPath = "config/inactive-users.toml"

// Config is the top level configuration of an audit run.
type Config struct {
	OrganisationName string
	InactivityMonths int
	Teams            []TeamEntry
}

// TeamEntry is one [team.<name>] table in configuration order.
type TeamEntry struct {
	Name     string
	Settings TeamSettings
}

// TeamSettings holds the raw settings of a team. Required fields are pointers
// so that an absent key can be told apart from its zero value.
type TeamSettings struct {
	GithubTeam           *string
	RemoveFromTeam       *bool
	UsersToIgnore        []string
	RepositoriesToIgnore []string
	SlackChannel         *string
	// Invalid is set when the team's table could not be decoded.
	Invalid *FieldError
}

// FieldError reports a team setting with the wrong type.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Reason)
}

type document struct {
	Github struct {
		OrganisationName string `toml:"organisation_name"`
	} `toml:"github"`
	ActivityCheck struct {
		InactivityMonths int `toml:"inactivity_months"`
	} `toml:"activity_check"`
	// Team tables are decoded one by one so a malformed team does not fail
	// the whole document.
	Team map[string]any `toml:"team"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a TOML configuration document. Teams are returned in the
// order their tables appear in the document.
func Parse(data []byte) (*Config, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if doc.Github.OrganisationName == "" {
		return nil, fmt.Errorf("missing required setting: github.organisation_name")
	}
	if doc.ActivityCheck.InactivityMonths <= 0 {
		return nil, fmt.Errorf("activity_check.inactivity_months must be a positive integer, got %d",
			doc.ActivityCheck.InactivityMonths)
	}

	order, err := teamOrder(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		OrganisationName: doc.Github.OrganisationName,
		InactivityMonths: doc.ActivityCheck.InactivityMonths,
		Teams:            make([]TeamEntry, 0, len(doc.Team)),
	}
	seen := make(map[string]bool, len(doc.Team))
	for _, name := range order {
		settings, ok := doc.Team[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		cfg.Teams = append(cfg.Teams, TeamEntry{Name: name, Settings: decodeTeam(settings)})
	}

	// Teams declared through inline tables or dotted keys are not visited by
	// teamOrder; keep them, sorted, after the ordered ones.
	var rest []string
	for name := range doc.Team {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		cfg.Teams = append(cfg.Teams, TeamEntry{Name: name, Settings: decodeTeam(doc.Team[name])})
	}

	return cfg, nil
}

// teamOrder walks the document's table headers and returns the names of the
// [team.<name>] tables as they appear.
func teamOrder(data []byte) ([]string, error) {
	var names []string
	p := unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		if expr.Kind != unstable.Table {
			continue
		}
		var parts []string
		it := expr.Key()
		for it.Next() {
			parts = append(parts, string(it.Node().Data))
		}
		if len(parts) >= 2 && parts[0] == "team" {
			names = append(names, parts[1])
		}
	}
	if err := p.Error(); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return names, nil
}

// decodeTeam converts a decoded [team.<name>] table into TeamSettings. The
// first wrongly typed field is reported in Invalid.
func decodeTeam(raw any) TeamSettings {
	var settings TeamSettings
	table, ok := raw.(map[string]any)
	if !ok {
		settings.Invalid = &FieldError{Field: "team", Reason: "must be a table"}
		return settings
	}

	if v, ok := table["github_team"]; ok {
		s, ok := v.(string)
		if !ok {
			settings.Invalid = &FieldError{Field: "github_team", Reason: "must be a string"}
			return settings
		}
		settings.GithubTeam = &s
	}
	if v, ok := table["remove_from_team"]; ok {
		b, ok := v.(bool)
		if !ok {
			settings.Invalid = &FieldError{Field: "remove_from_team", Reason: "must be a boolean"}
			return settings
		}
		settings.RemoveFromTeam = &b
	}
	if v, ok := table["slack_channel"]; ok {
		s, ok := v.(string)
		if !ok {
			settings.Invalid = &FieldError{Field: "slack_channel", Reason: "must be a string"}
			return settings
		}
		settings.SlackChannel = &s
	}

	var err *FieldError
	if settings.UsersToIgnore, err = stringList(table, "users_to_ignore"); err != nil {
		settings.Invalid = err
		return settings
	}
	if settings.RepositoriesToIgnore, err = stringList(table, "repositories_to_ignore"); err != nil {
		settings.Invalid = err
		return settings
	}
	return settings
}

func stringList(table map[string]any, key string) ([]string, *FieldError) {
	v, ok := table[key]
	if !ok {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &FieldError{Field: key, Reason: "must be a list of strings"}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &FieldError{Field: key, Reason: "must be a list of strings"}
		}
		out = append(out, s)
	}
	return out, nil
}
