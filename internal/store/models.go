package store

import (
	"database/sql"
	"encoding/json"
)

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// partner lists are stored as JSON arrays in a TEXT column.
func idsToJSON(ids []int64) string {
	if ids == nil {
		ids = []int64{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func idsFromJSON(s string) []int64 {
	if s == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}

func timesToJSON(times []string) string {
	if times == nil {
		times = []string{}
	}
	b, err := json.Marshal(times)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func timesFromJSON(s string) []string {
	if s == "" {
		return nil
	}
	var times []string
	if err := json.Unmarshal([]byte(s), &times); err != nil {
		return nil
	}
	return times
}
