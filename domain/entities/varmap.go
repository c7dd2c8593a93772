package entities

// VarMap maps variable names to values.
type VarMap map[string]Value

// Clone returns a shallow copy of m. Values are immutable so sharing them is
// safe.
func (m VarMap) Clone() VarMap {
	if m == nil {
		return nil
	}
	c := make(VarMap, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// ResChain is an ordered list of resource layers. Lookups return the first
// layer that defines the key, so earlier layers override later ones.
type ResChain []VarMap

// Lookup finds key in the first layer that defines it.
func (c ResChain) Lookup(key string) (Value, bool) {
	for _, layer := range c {
		if v, ok := layer[key]; ok {
			return v, true
		}
	}
	return Value{}, false
}
