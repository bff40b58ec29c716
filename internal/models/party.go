package models

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

var errInvalidPartyRef = errors.New("party ref: expected user id string or user object")

// PartyRef ссылается на участника сделки: либо только ID, либо развёрнутый профиль.
// Разбирается один раз на границе, дальше используется только UserID().
type PartyRef struct {
	id   uuid.UUID
	user *User
}

// PartyByID создаёт ссылку по идентификатору.
func PartyByID(id uuid.UUID) PartyRef {
	return PartyRef{id: id}
}

// PartyExpanded создаёт ссылку на загруженного пользователя.
func PartyExpanded(u User) PartyRef {
	return PartyRef{id: u.ID, user: &u}
}

func (p PartyRef) UserID() uuid.UUID {
	return p.id
}

// Expanded возвращает профиль, если он был передан.
func (p PartyRef) Expanded() (User, bool) {
	if p.user == nil {
		return User{}, false
	}
	return *p.user, true
}

func (p PartyRef) IsZero() bool {
	return p.id == uuid.Nil
}

func (p PartyRef) MarshalJSON() ([]byte, error) {
	if p.user != nil {
		return json.Marshal(p.user)
	}
	return json.Marshal(p.id.String())
}

func (p *PartyRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = PartyRef{}
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		*p = PartyByID(id)
		return nil
	case '{':
		var u User
		if err := json.Unmarshal(data, &u); err != nil {
			return err
		}
		if u.ID == uuid.Nil {
			return errInvalidPartyRef
		}
		*p = PartyExpanded(u)
		return nil
	}
	return errInvalidPartyRef
}
