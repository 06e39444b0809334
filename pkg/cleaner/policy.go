// pkg/cleaner/policy.go
package cleaner

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MissingPolicy decides what happens to rows whose value is missing
type MissingPolicy string

const (
	// MissingDrop removes the whole row
	MissingDrop MissingPolicy = "drop"
	// MissingImpute replaces the value with the policy fill value
	MissingImpute MissingPolicy = "impute"
)

const (
	DefaultFillValue     = "Unknown"
	DefaultOverflowValue = "Other"
	DefaultRareThreshold = 0.01
)

var transmissionSynonyms = map[string]string{
	"auto": "automatic",
	"at":   "automatic",
	"6sp":  "automatic",
	"10sp": "automatic",
	"man":  "manual",
	"mt":   "manual",
}

var makeSynonyms = map[string]string{
	"chevy": "Chevrolet",
	"merc":  "Mercedes-Benz",
	"vw":    "Volkswagen",
}

var bodySynonyms = map[string]string{
	"g sedan":      "sedan",
	"hatchback":    "sedan",
	"crew cab":     "pickup",
	"regular cab":  "pickup",
	"extended cab": "pickup",
	"double cab":   "pickup",
}

// TransmissionSynonyms returns a copy of the transmission synonym table
func TransmissionSynonyms() map[string]string { return copyMap(transmissionSynonyms) }

// MakeSynonyms returns a copy of the make synonym table
func MakeSynonyms() map[string]string { return copyMap(makeSynonyms) }

// BodySynonyms returns a copy of the body synonym table
func BodySynonyms() map[string]string { return copyMap(bodySynonyms) }

// ColumnPolicy describes how one categorical column is normalized
type ColumnPolicy struct {
	Column        string            `yaml:"column" validate:"required"`
	Synonyms      map[string]string `yaml:"synonyms"`
	TitleCase     bool              `yaml:"title_case"`
	Missing       MissingPolicy     `yaml:"missing" validate:"required,oneof=drop impute"`
	FillValue     string            `yaml:"fill_value" validate:"required_if=Missing impute"`
	RareThreshold float64           `yaml:"rare_threshold" validate:"gte=0,lt=1"`
	OverflowValue string            `yaml:"overflow_value" validate:"required_with=RareThreshold"`
}

// PolicySet holds column policies keyed by column name
type PolicySet map[string]ColumnPolicy

// DefaultPolicies returns the policies for the vehicle-sales columns
func DefaultPolicies() PolicySet {
	return PolicySet{
		"make": {
			Column:    "make",
			Synonyms:  MakeSynonyms(),
			TitleCase: true,
			Missing:   MissingDrop,
			FillValue: DefaultFillValue,
		},
		"model": {
			Column:    "model",
			TitleCase: true,
			Missing:   MissingDrop,
			FillValue: DefaultFillValue,
		},
		"trim": {
			Column:        "trim",
			TitleCase:     true,
			Missing:       MissingImpute,
			FillValue:     DefaultFillValue,
			RareThreshold: DefaultRareThreshold,
			OverflowValue: DefaultOverflowValue,
		},
		"transmission": {
			Column:    "transmission",
			Synonyms:  TransmissionSynonyms(),
			Missing:   MissingImpute,
			FillValue: DefaultFillValue,
		},
		"body": {
			Column:        "body",
			Synonyms:      BodySynonyms(),
			TitleCase:     true,
			Missing:       MissingImpute,
			FillValue:     DefaultFillValue,
			RareThreshold: DefaultRareThreshold,
			OverflowValue: DefaultOverflowValue,
		},
	}
}

// GenericPolicy is applied to categorical columns without a configured policy
func GenericPolicy(column string) ColumnPolicy {
	return ColumnPolicy{
		Column:    column,
		Missing:   MissingImpute,
		FillValue: DefaultFillValue,
	}
}

// Lookup returns the policy for a column, falling back to GenericPolicy
func (p PolicySet) Lookup(column string) ColumnPolicy {
	if policy, ok := p[column]; ok {
		return policy
	}
	return GenericPolicy(column)
}

// Validate checks every policy against its struct constraints
func (p PolicySet) Validate() error {
	validate := validator.New()
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		policy := p[name]
		if policy.Column != name {
			return fmt.Errorf("policy key %q does not match column %q", name, policy.Column)
		}
		if err := validate.Struct(policy); err != nil {
			return fmt.Errorf("invalid policy for column %s: %w", name, err)
		}
	}
	return nil
}

type policyFile struct {
	Policies []ColumnPolicy `yaml:"policies"`
}

// LoadPolicies reads a YAML policy file and merges it over the defaults.
// A policy in the file replaces the default policy of the same column.
func LoadPolicies(path string) (PolicySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicies(data)
}

// ParsePolicies parses YAML policy data and merges it over the defaults
func ParsePolicies(data []byte) (PolicySet, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	policies := DefaultPolicies()
	for _, policy := range file.Policies {
		policy.Column = strings.TrimSpace(policy.Column)
		// Synonym keys are matched after lower-casing and trimming
		if len(policy.Synonyms) > 0 {
			normalized := make(map[string]string, len(policy.Synonyms))
			for k, v := range policy.Synonyms {
				normalized[strings.ToLower(strings.TrimSpace(k))] = v
			}
			policy.Synonyms = normalized
		}
		policies[policy.Column] = policy
	}

	if err := policies.Validate(); err != nil {
		return nil, err
	}
	return policies, nil
}

// describeMapping renders a synonym table with sorted keys for the cleaning log
func describeMapping(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("'%s': '%s'", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
