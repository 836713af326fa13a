// Package validation содержит функции валидации входных данных.
package validation

// ActivityKinds перечисляет известные виды лимитируемых активностей.
var ActivityKinds = map[string]struct{}{
	"checkin":  {},
	"lottery":  {},
	"dice":     {},
	"rps":      {},
	"transfer": {},
}

// IsValidActivityKind проверяет, что вид активности известен системе.
func IsValidActivityKind(kind string) bool {
	_, ok := ActivityKinds[kind]
	return ok
}

// IsValidUsername проверяет имя пользователя: 1..64 символов из
// латиницы, цифр, подчёркивания, дефиса и точки.
func IsValidUsername(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.':
		default:
			return false
		}
	}

	return true
}

// IsValidCorrelationID проверяет correlation id: 1..128 печатаемых
// ASCII-символов без пробелов.
func IsValidCorrelationID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		if c <= ' ' || c > '~' {
			return false
		}
	}

	return true
}
