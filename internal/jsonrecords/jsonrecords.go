// Package jsonrecords implements the ordered-key record-unwrapping idiom
// shared by the network sniffer (C6) and the API scraper (C13): both need
// to find "the list of records" inside an arbitrarily-shaped JSON API
// response.
package jsonrecords

import "github.com/tidwall/gjson"

// wrapperKeys is the ordered set of keys checked for an array-valued
// record list when the top-level JSON value is an object, grounded on
// original_source's network_sniffer.py/_count_records.
var wrapperKeys = []string{"data", "records", "items", "results", "rows", "list"}

// Count estimates the number of data records in a raw JSON response body:
// the length of the top-level array, or of the first present wrapper key's
// array value, or 0.
func Count(body []byte) int {
	result := gjson.ParseBytes(body)
	if result.IsArray() {
		return len(result.Array())
	}
	if result.IsObject() {
		for _, key := range wrapperKeys {
			if v := result.Get(key); v.Exists() && v.IsArray() {
				return len(v.Array())
			}
		}
	}
	return 0
}

// Extract returns the record list as a slice of generic maps: the top-level
// array itself, or the first present wrapper key's array, or nil if no
// record list is found.
func Extract(body []byte) []map[string]any {
	result := gjson.ParseBytes(body)

	arr := gjson.Result{}
	switch {
	case result.IsArray():
		arr = result
	case result.IsObject():
		for _, key := range wrapperKeys {
			if v := result.Get(key); v.Exists() && v.IsArray() {
				arr = v
				break
			}
		}
	}
	if !arr.Exists() {
		return nil
	}

	items := arr.Array()
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if item.IsObject() {
			records = append(records, item.Value().(map[string]any))
		}
	}
	return records
}

// WrapperKey returns the wrapper key used to locate a record array within
// an object-shaped response, or "" if the top-level value is itself an
// array or no wrapper key matched.
func WrapperKey(body []byte) string {
	result := gjson.ParseBytes(body)
	if !result.IsObject() {
		return ""
	}
	for _, key := range wrapperKeys {
		if v := result.Get(key); v.Exists() && v.IsArray() {
			return key
		}
	}
	return ""
}
