package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/streamvault/streamvault/internal/address"
)

// OutcomeList, PositionEntryList, and EligibleValidatorList persist their
// variable-length slices as a single JSONB column — Postgres has no native
// array-of-struct type, and these lists are always read and written whole
// (no per-element SQL predicate ever touches them), so JSON is the simplest
// faithful encoding.

// OutcomeList is the JSONB-backed form of Market.Outcomes.
type OutcomeList []Outcome

func (l OutcomeList) Value() (driver.Value, error) {
	return json.Marshal([]Outcome(l))
}

func (l *OutcomeList) Scan(src any) error {
	b, err := asBytes(src)
	if err != nil {
		return err
	}
	if b == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, (*[]Outcome)(l))
}

// PositionEntryList is the JSONB-backed form of BettorPosition.Entries.
type PositionEntryList []PositionEntry

func (l PositionEntryList) Value() (driver.Value, error) {
	return json.Marshal([]PositionEntry(l))
}

func (l *PositionEntryList) Scan(src any) error {
	b, err := asBytes(src)
	if err != nil {
		return err
	}
	if b == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, (*[]PositionEntry)(l))
}

// EligibleValidatorList is the JSONB-backed form of
// MarketResolutionRecord.EligibleValidators.
type EligibleValidatorList []EligibleValidator

func (l EligibleValidatorList) Value() (driver.Value, error) {
	return json.Marshal([]EligibleValidator(l))
}

func (l *EligibleValidatorList) Scan(src any) error {
	b, err := asBytes(src)
	if err != nil {
		return err
	}
	if b == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, (*[]EligibleValidator)(l))
}

// SelectedValidatorList is the JSONB-backed form of
// MarketResolutionRecord.SelectedValidators (a flat address.ID list).
type SelectedValidatorList []address.ID

func (l SelectedValidatorList) Value() (driver.Value, error) {
	return json.Marshal([]address.ID(l))
}

func (l *SelectedValidatorList) Scan(src any) error {
	b, err := asBytes(src)
	if err != nil {
		return err
	}
	if b == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, (*[]address.ID)(l))
}

func asBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("domain: cannot scan %T into JSONB column", src)
	}
}
