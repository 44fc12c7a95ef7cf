package command

import (
	"fmt"
	"sort"
	"strings"
)

const (
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
	caseInsensitiveOperatingSystemConstant = "windows"
)

type environmentVariable struct {
	name  string
	value string
}

// Environment is an immutable set of variables handed to the child process.
type Environment struct {
	variables       map[string]environmentVariable
	caseInsensitive bool
}

// NewEnvironment parses KEY=VALUE entries and applies overrides on top, replacing earlier values.
// Entries without a separator are ignored; later duplicates win. Names are case-sensitive.
func NewEnvironment(entries []string, overrides map[string]string) Environment {
	return newEnvironment(entries, overrides, false)
}

// NewEnvironmentForOperatingSystem behaves like NewEnvironment but compares names without regard
// to case on Windows, where Path and PATH name the same variable. The last spelling seen is kept.
func NewEnvironmentForOperatingSystem(operatingSystem string, entries []string, overrides map[string]string) Environment {
	return newEnvironment(entries, overrides, operatingSystem == caseInsensitiveOperatingSystemConstant)
}

func newEnvironment(entries []string, overrides map[string]string, caseInsensitive bool) Environment {
	environment := Environment{
		variables:       make(map[string]environmentVariable, len(entries)+len(overrides)),
		caseInsensitive: caseInsensitive,
	}
	for _, entry := range entries {
		name, value, parsed := splitEnvironmentEntry(entry)
		if !parsed {
			continue
		}
		environment.variables[environment.key(name)] = environmentVariable{name: name, value: value}
	}

	overrideNames := make([]string, 0, len(overrides))
	for name := range overrides {
		overrideNames = append(overrideNames, name)
	}
	sort.Strings(overrideNames)
	for _, name := range overrideNames {
		environment.variables[environment.key(name)] = environmentVariable{name: name, value: overrides[name]}
	}
	return environment
}

func (environment Environment) key(name string) string {
	if environment.caseInsensitive {
		return strings.ToUpper(name)
	}
	return name
}

// Lookup returns the value of name.
func (environment Environment) Lookup(name string) (string, bool) {
	variable, exists := environment.variables[environment.key(name)]
	return variable.value, exists
}

// Len reports the number of variables.
func (environment Environment) Len() int {
	return len(environment.variables)
}

// Entries renders the variables as sorted KEY=VALUE strings suitable for exec.Cmd.Env.
func (environment Environment) Entries() []string {
	variables := make([]environmentVariable, 0, len(environment.variables))
	for _, variable := range environment.variables {
		variables = append(variables, variable)
	}
	sort.Slice(variables, func(left int, right int) bool {
		return variables[left].name < variables[right].name
	})

	entries := make([]string, 0, len(variables))
	for _, variable := range variables {
		entries = append(entries, fmt.Sprintf(environmentAssignmentTemplateConstant, variable.name, environmentAssignmentSeparatorConstant, variable.value))
	}
	return entries
}

// splitEnvironmentEntry tolerates the Windows "=C:=C:\dir" entries whose names start with '='.
func splitEnvironmentEntry(entry string) (string, string, bool) {
	separatorIndex := strings.Index(entry[min(1, len(entry)):], environmentAssignmentSeparatorConstant)
	if separatorIndex < 0 {
		return "", "", false
	}
	separatorIndex += min(1, len(entry))
	return entry[:separatorIndex], entry[separatorIndex+1:], true
}
