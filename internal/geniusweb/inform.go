package geniusweb

import (
	"fmt"

	json "github.com/goccy/go-json"
)

const ProtocolSAOP = "SAOP"

// Inform - событие, которое протокол доставляет партии
type Inform interface {
	isInform()
}

type Settings struct {
	ID         PartyID
	ProfileURI string
	Protocol   string
	Progress   Progress
	Parameters map[string]any
}

type YourTurn struct{}

type ActionDone struct {
	Action Action
}

// Finished - конец сессии; Agreements пустой, если соглашения нет
type Finished struct {
	Agreements map[PartyID]*Bid
}

func (*Settings) isInform()   {}
func (*YourTurn) isInform()   {}
func (*ActionDone) isInform() {}
func (*Finished) isInform()   {}

func InformName(i Inform) string {
	switch i.(type) {
	case *Settings:
		return "Settings"
	case *YourTurn:
		return "YourTurn"
	case *ActionDone:
		return "ActionDone"
	case *Finished:
		return "Finished"
	}
	return fmt.Sprintf("%T", i)
}

type settingsJSON struct {
	ID         PartyID         `json:"id"`
	Profile    string          `json:"profile"`
	Protocol   string          `json:"protocol"`
	Progress   json.RawMessage `json:"progress"`
	Parameters map[string]any  `json:"parameters"`
}

func MarshalInform(i Inform) ([]byte, error) {
	switch v := i.(type) {
	case *Settings:
		progress, err := marshalProgress(v.Progress)
		if err != nil {
			return nil, err
		}
		params := v.Parameters
		if params == nil {
			params = map[string]any{}
		}
		return wrap("Settings", settingsJSON{
			ID:         v.ID,
			Profile:    v.ProfileURI,
			Protocol:   v.Protocol,
			Progress:   progress,
			Parameters: params,
		})
	case *YourTurn:
		return wrap("YourTurn", struct{}{})
	case *ActionDone:
		action, err := MarshalAction(v.Action)
		if err != nil {
			return nil, err
		}
		return wrap("ActionDone", struct {
			Action json.RawMessage `json:"action"`
		}{action})
	case *Finished:
		agreements := v.Agreements
		if agreements == nil {
			agreements = map[PartyID]*Bid{}
		}
		return wrap("Finished", struct {
			Agreements map[PartyID]*Bid `json:"agreements"`
		}{agreements})
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownInform, i)
}

func UnmarshalInform(data []byte) (Inform, error) {
	name, body, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "Settings":
		var v settingsJSON
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode Settings: %w", err)
		}
		progress, err := parseProgress(v.Progress)
		if err != nil {
			return nil, fmt.Errorf("decode Settings progress: %w", err)
		}
		return &Settings{
			ID:         v.ID,
			ProfileURI: v.Profile,
			Protocol:   v.Protocol,
			Progress:   progress,
			Parameters: v.Parameters,
		}, nil
	case "YourTurn":
		return &YourTurn{}, nil
	case "ActionDone":
		var v struct {
			Action json.RawMessage `json:"action"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode ActionDone: %w", err)
		}
		action, err := UnmarshalAction(v.Action)
		if err != nil {
			return nil, err
		}
		return &ActionDone{Action: action}, nil
	case "Finished":
		var v struct {
			Agreements map[PartyID]*Bid `json:"agreements"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode Finished: %w", err)
		}
		return &Finished{Agreements: v.Agreements}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownInform, name)
}
