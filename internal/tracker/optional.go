package tracker

import (
	"bytes"
	"encoding/json"
)

// OptionalID distinguishes an absent JSON field from an explicit null.
// Set is true whenever the field appeared in the input; ID is nil for null.
type OptionalID struct {
	Set bool
	ID  *int64
}

// SetID returns an OptionalID carrying id.
func SetID(id int64) OptionalID {
	return OptionalID{Set: true, ID: &id}
}

// ClearID returns an OptionalID that clears the reference.
func ClearID() OptionalID {
	return OptionalID{Set: true}
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.ID = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.ID = &id
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.ID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.ID)
}
