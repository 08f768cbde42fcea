// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var lengthRe = regexp.MustCompile(`-?\d+`)

// Attr represents each of the keys to be included in the output.  These are
// gjson paths into the JSON form of an issue row, thus the name.
type Attr struct {
	// The JSON key to extract from the row.
	Key string `yaml:"key"`
	// Should this Attr be included in output?
	Include bool `yaml:"include"`
	// The key to use in the output. This is also the column title.
	OutputKey string `yaml:"outputKey"`
	// Transformation spec to apply to the output value.
	TransformSpec string `yaml:"transformSpec"`
}

// Transform applies the case and length transformations in TransformSpec.
// Only string values are transformed.
func (a *Attr) Transform(value any) any {
	result, ok := value.(string)
	if !ok {
		return value
	}

	// We need to know which case transformation appears last.  This covers the
	// case where a global transformation has been prepended to the attr's own
	// and lets the attr's carry more weight.
	// IOW...  --attrs '*::U,token::l' will be lower case.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	// Same logic as above re: case.  A more specific length overrides a
	// global one.
	if match := lengthRe.FindAllString(a.TransformSpec, -1); len(match) != 0 {
		l, _ := strconv.Atoi(match[len(match)-1])
		abs := l
		if abs < 0 {
			abs = -abs
		}
		if len(result) > abs && abs > 0 {
			if l < 0 && abs >= 4 {
				lr := abs/2 - 1
				result = result[:lr] + ".." + result[len(result)-lr:]
			} else {
				result = result[:abs]
			}
		}
	}

	return result
}

type AttrList []Attr

// Defaults are the columns of the text table.
func Defaults() AttrList {
	return AttrList{
		{Key: "text", OutputKey: "Text", Include: true},
		{Key: "token", OutputKey: "Token", Include: true},
		{Key: "type", OutputKey: "Type", Include: true},
		{Key: "offset", OutputKey: "Offset", Include: true},
		{Key: "suggestions.#.suggestion", OutputKey: "Suggestions", Include: true},
	}
}

// Return a string representation of the AttrList.  This should match the format
// of the original --attrs flag.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses each spec from the --attrs flag and adds it to the AttrList.
func (a *AttrList) Set(value string) error {
	if value == "" {
		return nil
	}

	const (
		jsonIdx = iota
		outputIdx
		transformIdx
	)

	// There are three : delimited fields in each spec.  The first is the key to
	// extract from the JSON object.  The second is the key to use in the output.
	// The third is the transformation spec to apply to the output value. The
	// latter two are optional.  The output key will default to the last
	// section of the JSON key.
specloop:
	for _, spec := range strings.Split(value, ",") {
		attr := Attr{
			Include: true,
		}

		fields := strings.Split(spec, ":")
		if len(fields) > transformIdx+1 {
			return fmt.Errorf("invalid attr %q: at most key:output:transform", spec)
		}

		// The first field is the key to extract.  If it begins with a !, it is
		// excluded from the output.
		attr.Key = strings.TrimPrefix(strings.TrimSpace(fields[jsonIdx]), ".")
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		if attr.Key == "" {
			return fmt.Errorf("invalid attr %q: empty key", spec)
		}
		if attr.Key == "*" {
			attr.Include = false
		}

		explicitOutput := len(fields) > outputIdx && strings.TrimSpace(fields[outputIdx]) != ""
		if explicitOutput {
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		} else {
			segments := strings.Split(attr.Key, ".")
			attr.OutputKey = segments[len(segments)-1]
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		// If the attr already exists in the list (because it's one of the
		// defaults or the user double-entered it) just apply the Include,
		// TransformSpec and any explicit OutputKey to the existing Attr.
		for i := range *a {
			existing := &(*a)[i]
			if existing.Key == attr.Key || strings.EqualFold(existing.OutputKey, attr.Key) {
				existing.Include = attr.Include
				existing.TransformSpec = attr.TransformSpec
				if explicitOutput {
					existing.OutputKey = attr.OutputKey
				}
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// SetGlobalTransformSpec inserts the transform spec of a "*" attr into the
// front of all attrs in the list.
func (a *AttrList) SetGlobalTransformSpec() error {
	spec := ""

	// If there is more than one global spec, only the first is used.
	for i := range *a {
		if (*a)[i].Key == "*" {
			spec = (*a)[i].TransformSpec
			break
		}
	}

	if spec == "" {
		return nil
	}

	for i := range *a {
		(*a)[i].TransformSpec = spec + "," + (*a)[i].TransformSpec
	}

	return nil
}

// Included returns the attrs that are output, in order.
func (a AttrList) Included() AttrList {
	out := make(AttrList, 0, len(a))
	for _, attr := range a {
		if attr.Include {
			out = append(out, attr)
		}
	}
	return out
}

func (a *AttrList) Type() string {
	return "list"
}
