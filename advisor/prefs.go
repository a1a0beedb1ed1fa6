package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"privacy-advisor/assessment"
	"privacy-advisor/kvstore"
)

const (
	keyUserType = "userType"
	keyRegion   = "region"
)

// Prefs são as preferências persistidas do usuário.
type Prefs struct {
	UserType string
	Region   string
}

func DefaultPrefs() Prefs {
	return Prefs{UserType: string(assessment.AudienceAdult), Region: assessment.DefaultRegion}
}

// LoadPrefs lê as preferências. Na primeira execução grava os padrões
// ("adult"/"US") para as chaves ausentes.
func LoadPrefs(ctx context.Context, store kvstore.Store) (Prefs, error) {
	def := DefaultPrefs()
	userType, err := loadOrInit(ctx, store, keyUserType, def.UserType)
	if err != nil {
		return Prefs{}, err
	}
	region, err := loadOrInit(ctx, store, keyRegion, def.Region)
	if err != nil {
		return Prefs{}, err
	}
	return Prefs{UserType: userType, Region: region}, nil
}

// SavePrefs grava apenas os campos não vazios.
func SavePrefs(ctx context.Context, store kvstore.Store, p Prefs) error {
	if p.UserType != "" {
		if err := setString(ctx, store, keyUserType, string(assessment.ParseAudience(p.UserType))); err != nil {
			return err
		}
	}
	if p.Region != "" {
		if err := setString(ctx, store, keyRegion, p.Region); err != nil {
			return err
		}
	}
	return nil
}

func loadOrInit(ctx context.Context, store kvstore.Store, key, def string) (string, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	if ok {
		var v string
		if err := json.Unmarshal(raw, &v); err == nil && v != "" {
			return v, nil
		}
	}
	if err := setString(ctx, store, key, def); err != nil {
		return "", err
	}
	return def, nil
}

func setString(ctx context.Context, store kvstore.Store, key, v string) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
