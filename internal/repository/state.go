package repository

import (
	"encoding/json"

	"opecours/internal/domain/stock"
)

// Status tags a State.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is one emission of the quote stream.
type State struct {
	Status  Status
	Data    []stock.Stock
	Message string
}

func Loading() State { return State{Status: StatusLoading} }

func Success(data []stock.Stock) State { return State{Status: StatusSuccess, Data: data} }

func Failure(message string) State { return State{Status: StatusError, Message: message} }

type stateJSON struct {
	Status  Status        `json:"status"`
	Data    []stock.Stock `json:"data"`
	Message string        `json:"message"`
}

// MarshalJSON always emits data as an array.
func (s State) MarshalJSON() ([]byte, error) {
	data := s.Data
	if data == nil {
		data = []stock.Stock{}
	}
	return json.Marshal(stateJSON{Status: s.Status, Data: data, Message: s.Message})
}

func (s *State) UnmarshalJSON(b []byte) error {
	var v stateJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = State(v)
	return nil
}
