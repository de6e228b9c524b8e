package mail

import "sort"

// HeaderValue is the accepted shape of a header value before normalization.
type HeaderValue interface {
	string | []string
}

// NormalizeHeaders turns a name→value map into a name→values map,
// wrapping single strings into one-element lists. A nil map stays nil.
func NormalizeHeaders[V HeaderValue](headers map[string]V) map[string][]string {
	if headers == nil {
		return nil
	}
	result := make(map[string][]string, len(headers))
	for name, value := range headers {
		switch v := any(value).(type) {
		case string:
			result[name] = []string{v}
		case []string:
			result[name] = append([]string{}, v...)
		}
	}
	return result
}

// headerSet keeps header values along with the order names were first set.
type headerSet struct {
	values map[string][]string
	order  []string
}

func newHeaderSet(headers map[string][]string) *headerSet {
	if headers == nil {
		return nil
	}
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	h := &headerSet{values: make(map[string][]string, len(headers))}
	for _, name := range names {
		h.set(name, headers[name])
	}
	return h
}

func (h *headerSet) clone() *headerSet {
	if h == nil {
		return nil
	}
	c := &headerSet{
		values: make(map[string][]string, len(h.values)),
		order:  append([]string{}, h.order...),
	}
	for name, values := range h.values {
		c.values[name] = append([]string{}, values...)
	}
	return c
}

func (h *headerSet) set(name string, values []string) {
	if _, ok := h.values[name]; !ok {
		h.order = append(h.order, name)
	}
	h.values[name] = append([]string{}, values...)
}

func (h *headerSet) add(name, value string) {
	if _, ok := h.values[name]; !ok {
		h.order = append(h.order, name)
	}
	h.values[name] = append(h.values[name], value)
}

func (h *headerSet) get(name string) []string {
	if h == nil {
		return []string{}
	}
	return append([]string{}, h.values[name]...)
}

func (h *headerSet) toMap() map[string][]string {
	if h == nil {
		return nil
	}
	return h.clone().values
}

// each visits headers in insertion order.
func (h *headerSet) each(fn func(name string, values []string)) {
	if h == nil {
		return
	}
	for _, name := range h.order {
		fn(name, h.values[name])
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
