package relay

// Gate authorizes actions against the single operator.
type Gate struct {
	operator int64
}

func NewGate(operatorID int64) Gate { return Gate{operator: operatorID} }

func (g Gate) Operator() int64 { return g.operator }

// Authorize reports whether actorID is the operator. An unset operator
// authorizes nobody.
func (g Gate) Authorize(actorID int64) bool {
	return g.operator != 0 && actorID == g.operator
}

// Check is Authorize as an error, for the top of handlers.
func (g Gate) Check(actorID int64) error {
	if !g.Authorize(actorID) {
		return ErrUnauthorized
	}
	return nil
}
