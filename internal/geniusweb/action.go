package geniusweb

import (
	"fmt"

	json "github.com/goccy/go-json"
)

type PartyID string

func (id PartyID) String() string { return string(id) }

// Action - то, что партия отправляет в Connection
type Action interface {
	Actor() PartyID
	isAction()
}

type Offer struct {
	By  PartyID
	Bid *Bid
}

type Accept struct {
	By  PartyID
	Bid *Bid
}

type EndNegotiation struct {
	By PartyID
}

func (a *Offer) Actor() PartyID          { return a.By }
func (a *Accept) Actor() PartyID         { return a.By }
func (a *EndNegotiation) Actor() PartyID { return a.By }

func (*Offer) isAction()          {}
func (*Accept) isAction()         {}
func (*EndNegotiation) isAction() {}

func ActionName(a Action) string {
	switch a.(type) {
	case *Offer:
		return "Offer"
	case *Accept:
		return "Accept"
	case *EndNegotiation:
		return "EndNegotiation"
	}
	return fmt.Sprintf("%T", a)
}

type actorBidJSON struct {
	Actor PartyID `json:"actor"`
	Bid   *Bid    `json:"bid"`
}

type actorJSON struct {
	Actor PartyID `json:"actor"`
}

func MarshalAction(a Action) ([]byte, error) {
	switch v := a.(type) {
	case *Offer:
		return wrap("Offer", actorBidJSON{Actor: v.By, Bid: v.Bid})
	case *Accept:
		return wrap("Accept", actorBidJSON{Actor: v.By, Bid: v.Bid})
	case *EndNegotiation:
		return wrap("EndNegotiation", actorJSON{Actor: v.By})
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownAction, a)
}

func UnmarshalAction(data []byte) (Action, error) {
	name, body, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "Offer", "Accept":
		var v actorBidJSON
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if name == "Offer" {
			return &Offer{By: v.Actor, Bid: v.Bid}, nil
		}
		return &Accept{By: v.Actor, Bid: v.Bid}, nil
	case "EndNegotiation":
		var v actorJSON
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return &EndNegotiation{By: v.Actor}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
}
