package staging

import (
	"strconv"
)

func textCol[T any](name string, field func(*T) *string) Column[T] {
	return Column[T]{
		ColumnDef: ColumnDef{Name: name, Kind: Text},
		format:    func(r *T) string { return *field(r) },
		parse: func(r *T, s string) error {
			*field(r) = s
			return nil
		},
	}
}

func floatCol[T any](name string, field func(*T) **float64) Column[T] {
	return Column[T]{
		ColumnDef: ColumnDef{Name: name, Kind: Float},
		format: func(r *T) string {
			if v := *field(r); v != nil {
				return strconv.FormatFloat(*v, 'f', -1, 64)
			}
			return ""
		},
		parse: func(r *T, s string) error {
			if s == "" {
				*field(r) = nil
				return nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*field(r) = &v
			return nil
		},
	}
}

func nullableIntCol[T any](name string, field func(*T) **int) Column[T] {
	return Column[T]{
		ColumnDef: ColumnDef{Name: name, Kind: Int},
		format: func(r *T) string {
			if v := *field(r); v != nil {
				return strconv.Itoa(*v)
			}
			return ""
		},
		parse: func(r *T, s string) error {
			if s == "" {
				*field(r) = nil
				return nil
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*field(r) = &v
			return nil
		},
	}
}

func intCol[T any](name string, field func(*T) *int) Column[T] {
	return Column[T]{
		ColumnDef: ColumnDef{Name: name, Kind: Int},
		format:    func(r *T) string { return strconv.Itoa(*field(r)) },
		parse: func(r *T, s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*field(r) = v
			return nil
		},
	}
}

// Flags are written as 0/1.
func boolCol[T any](name string, field func(*T) *bool) Column[T] {
	return Column[T]{
		ColumnDef: ColumnDef{Name: name, Kind: Bool},
		format:    func(r *T) string { return formatBool(*field(r)) },
		parse: func(r *T, s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*field(r) = v
			return nil
		},
	}
}

func nullableBoolCol[T any](name string, field func(*T) **bool) Column[T] {
	return Column[T]{
		ColumnDef: ColumnDef{Name: name, Kind: Bool},
		format: func(r *T) string {
			if v := *field(r); v != nil {
				return formatBool(*v)
			}
			return ""
		},
		parse: func(r *T, s string) error {
			if s == "" {
				*field(r) = nil
				return nil
			}
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*field(r) = &v
			return nil
		},
	}
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
