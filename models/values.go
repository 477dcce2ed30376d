package models

// Pointer helpers for building entities by hand, mostly in create and modify
// calls where only the writable fields are set.

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }

func Float(v float64) *float64 { return &v }
