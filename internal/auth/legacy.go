package auth

import (
	"encoding/json"
	"fmt"
)

// LegacyUser is an account decoded from a browser storage export, still
// carrying its plaintext password.
type LegacyUser struct {
	User     User
	Password string
}

type legacyRecord struct {
	ID           string        `json:"id"`
	PersonalData *PersonalData `json:"personalData"`
	Credentials  *struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"credentials"`
	// Flat shape used before personal data existed.
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Status   Status `json:"status"`
}

// DecodeLegacyUsers decodes an exported user array. Records in the flat
// {username, password, role} shape are migrated: the full name becomes the
// username and the other personal fields "N/A".
func DecodeLegacyUsers(data []byte) ([]LegacyUser, error) {
	var records []legacyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode legacy users: %w", err)
	}

	out := make([]LegacyUser, 0, len(records))
	for _, r := range records {
		if r.Credentials != nil {
			u := User{
				ID:          r.ID,
				Credentials: Credentials{Username: r.Credentials.Username},
				Role:        r.Role,
				Status:      r.Status,
			}
			if r.PersonalData != nil {
				u.PersonalData = *r.PersonalData
			}
			out = append(out, LegacyUser{User: u, Password: r.Credentials.Password})
			continue
		}

		fullName := r.Username
		if fullName == "" {
			fullName = "Usuario Migrado"
		}
		out = append(out, LegacyUser{
			User: User{
				PersonalData: PersonalData{
					IdentificationType:   notAvailable,
					IdentificationNumber: notAvailable,
					FullName:             fullName,
					City:                 notAvailable,
					Country:              notAvailable,
					Profession:           notAvailable,
				},
				Credentials: Credentials{Username: r.Username},
				Role:        r.Role,
				Status:      StatusActive,
			},
			Password: r.Password,
		})
	}
	return out, nil
}
