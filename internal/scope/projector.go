package scope

import "github.com/dropDatabas3/mailveil/internal/store/core"

// Identity carries the fully resolved inputs to a projection. The caller
// resolves the alias address and avatar URL beforehand so Project stays a
// pure function of its arguments.
type Identity struct {
	Binding *core.ConsentBinding
	Client  *core.Client
	User    *core.User

	// AliasEmail is the alias address when the binding discloses an alias.
	AliasEmail string
	// AvatarURL is the resolved profile picture URL, nil when the user has
	// no picture and no fallback could be derived.
	AvatarURL *string
}

// Project renders the attribute map disclosed to the client. The subject id,
// client display name and email_verified are always present. Every other
// key appears only when its scope is granted. avatar_url, when granted but
// unresolved, is an explicit null, never an omitted key.
func Project(granted Set, id Identity) map[string]any {
	out := map[string]any{
		"id":             id.Binding.ID,
		"client":         id.Client.Name,
		"email_verified": true,
	}

	if granted.Has(Name) {
		out["name"] = id.User.Name
	}
	if granted.Has(Email) {
		if id.Binding.Channel.IsAlias() {
			out["email"] = id.AliasEmail
		} else {
			out["email"] = id.User.Email
		}
	}
	if granted.Has(AvatarURL) {
		if id.AvatarURL != nil {
			out["avatar_url"] = *id.AvatarURL
		} else {
			out["avatar_url"] = nil
		}
	}
	return out
}
