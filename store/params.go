package store

import (
	"database/sql"
	"encoding/json"
	"reflect"

	"github.com/teranos/mangasync/errors"
)

// placeholders returns the distinct :name parameters of a statement in order
// of first use. Quoted text, comments and :: casts are skipped.
func placeholders(sqlText string) []string {
	var names []string
	seen := map[string]bool{}

	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]
		switch {
		case c == '\'' || c == '"':
			// skip quoted text; doubled quotes stay inside the literal
			for i++; i < len(sqlText); i++ {
				if sqlText[i] == c {
					if i+1 < len(sqlText) && sqlText[i+1] == c {
						i++
						continue
					}
					break
				}
			}
		case c == '-' && i+1 < len(sqlText) && sqlText[i+1] == '-':
			for i < len(sqlText) && sqlText[i] != '\n' {
				i++
			}
		case c == ':' && i+1 < len(sqlText) && sqlText[i+1] == ':':
			i++
		case c == ':' && i+1 < len(sqlText) && isIdentStart(sqlText[i+1]):
			j := i + 1
			for j < len(sqlText) && isIdentPart(sqlText[j]) {
				j++
			}
			name := sqlText[i+1 : j]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i = j - 1
		}
	}
	return names
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// bind builds the named arguments for st. The statement must be given every
// parameter it references; extra params are ignored.
func bind(st statement, params Params) ([]any, error) {
	args := make([]any, 0, len(st.params))
	for _, name := range st.params {
		v, ok := params[name]
		if !ok {
			return nil, errors.Newf("missing parameter :%s", name)
		}
		bound, err := bindValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter :%s", name)
		}
		args = append(args, sql.Named(name, bound))
	}
	return args, nil
}

// bindValue encodes slices as JSON arrays; everything else goes to the driver.
// A nil slice binds as the empty array so IN lists match nothing.
func bindValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return v, nil
	}
	if rv.IsNil() {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode list")
	}
	return string(data), nil
}
