package query

// Tri is a three-valued truth value
type Tri uint8

const (
	False Tri = iota
	True
	Unknown
)

// String returns TRUE, FALSE or UNKNOWN
func (t Tri) String() string {
	switch t {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	default:
		return "UNKNOWN"
	}
}

// And is the SQL conjunction: FALSE dominates, then UNKNOWN
func (t Tri) And(o Tri) Tri {
	switch {
	case t == False || o == False:
		return False
	case t == Unknown || o == Unknown:
		return Unknown
	default:
		return True
	}
}

// Or is the SQL disjunction: TRUE dominates, then UNKNOWN
func (t Tri) Or(o Tri) Tri {
	switch {
	case t == True || o == True:
		return True
	case t == Unknown || o == Unknown:
		return Unknown
	default:
		return False
	}
}

// Not negates; NOT UNKNOWN is UNKNOWN
func (t Tri) Not() Tri {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// triOf converts a bool
func triOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

// Value returns the boolean value for TRUE/FALSE and NULL for UNKNOWN
func (t Tri) Value() Value {
	switch t {
	case True:
		return NewBool(true)
	case False:
		return NewBool(false)
	default:
		return Null()
	}
}

// truth interprets a value as a predicate result
func truth(v Value) (Tri, error) {
	switch v.typ {
	case TypeNull:
		return Unknown, nil
	case TypeBool:
		return triOf(v.b), nil
	default:
		return Unknown, newError(ErrType, "predicate", "expected BOOLEAN, got %s", v.typ)
	}
}
