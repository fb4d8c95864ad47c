package pg

import (
	"context"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

// El canal de disclosure se persiste como alias_id nullable; el dominio lo
// expone como variante explícita (core.DisclosureChannel).

func channelToAliasID(ch core.DisclosureChannel) *string {
	if id, ok := ch.AliasID(); ok {
		return &id
	}
	return nil
}

func aliasIDToChannel(id *string) core.DisclosureChannel {
	if id != nil {
		return core.DiscloseAlias(*id)
	}
	return core.DiscloseRealEmail()
}

func (s *Store) CreateBinding(ctx context.Context, b *core.ConsentBinding) error {
	// The unique constraint on (client_id, user_id) is the arbiter for
	// concurrent first-time authorizations.
	const q = `
		INSERT INTO consent_bindings (id, client_id, user_id, alias_id, created_at)
		VALUES ($1,$2,$3,$4,$5)`
	_, err := s.db.Exec(ctx, q, b.ID, b.ClientID, b.UserID, channelToAliasID(b.Channel), b.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetBinding(ctx context.Context, clientID, userID string) (*core.ConsentBinding, error) {
	const q = `
		SELECT id, client_id, user_id, alias_id, created_at
		FROM consent_bindings WHERE client_id = $1 AND user_id = $2`
	var b core.ConsentBinding
	var aliasID *string
	err := s.db.QueryRow(ctx, q, clientID, userID).Scan(&b.ID, &b.ClientID, &b.UserID, &aliasID, &b.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	b.Channel = aliasIDToChannel(aliasID)
	return &b, nil
}
