package application

import "github.com/GuelfoNero-beep/D117/internal/persistence"

// LegacyMigrations upgrades the schema 1 browser documents, which used Italian
// field names and the role "user", to the current layout.
func LegacyMigrations() *persistence.Migrations {
	m := persistence.NewMigrations()

	m.Register(persistence.KeyUsers, 1, persistence.Chain(
		persistence.RenameFields(map[string]string{
			"nome":         "name",
			"cognome":      "surname",
			"telefono":     "phone",
			"passwordHash": "credential",
			"ruolo":        "role",
		}),
		renameRole("user", RoleMember),
	))
	m.Register(persistence.KeyEvents, 1, persistence.RenameFields(map[string]string{
		"nome":        "name",
		"descrizione": "description",
		"urlImmagine": "imageUrl",
		"dataInizio":  "startsAt",
		"dataFine":    "endsAt",
	}))
	m.Register(persistence.KeyAudioGuides, 1, persistence.RenameFields(map[string]string{
		"nomeFile":    "fileName",
		"urlAudio":    "audioUrl",
		"urlImmagine": "imageUrl",
		"ordinamento": "sortOrder",
	}))
	m.Register(persistence.KeyDirectory, 1, persistence.RenameFields(map[string]string{
		"nome":        "name",
		"cognome":     "surname",
		"telefono":    "phone",
		"professione": "profession",
		"indirizzo":   "address",
		"azienda":     "company",
	}))
	m.Register(persistence.KeyBookings, 1, persistence.RenameFields(map[string]string{
		"dataPrenotazione": "bookedAt",
	}))
	m.Register(persistence.KeyReferences, 1, persistence.RenameFields(map[string]string{
		"titolo":      "title",
		"descrizione": "body",
	}))

	return m
}

func renameRole(from string, to Role) persistence.Migration {
	return func(records []map[string]any) ([]map[string]any, error) {
		for _, rec := range records {
			if rec != nil && rec["role"] == from {
				rec["role"] = string(to)
			}
		}
		return records, nil
	}
}
