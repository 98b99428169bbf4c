package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS labelers (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS drugs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		generic_name TEXT,
		product_type TEXT,
		effective_time TEXT,
		title TEXT,
		slug TEXT,
		labeler_id INTEGER REFERENCES labelers(id),
		indications_and_usage TEXT,
		dosage_and_administration TEXT,
		dosage_forms_and_strengths TEXT,
		warnings_and_precautions TEXT,
		adverse_reactions TEXT,
		clinical_pharmacology TEXT,
		clinical_studies TEXT,
		how_supplied TEXT,
		use_in_specific_populations TEXT,
		description TEXT,
		nonclinical_toxicology TEXT,
		instructions_for_use TEXT,
		mechanism_of_action TEXT,
		contraindications TEXT,
		boxed_warning TEXT,
		meta_description TEXT,
		highlights JSONB,
		blocks_json JSONB,
		vector_similar_ranking JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS drugs_slug_idx ON drugs (slug)`,
}

const upsertLabelerSQL = `INSERT INTO labelers (name, created_at, updated_at)
VALUES ($1, NOW(), NOW())
ON CONFLICT (name) DO NOTHING`

const selectLabelerSQL = `SELECT id FROM labelers WHERE name = $1`

const upsertDrugSQL = `INSERT INTO drugs (
    id, name, generic_name, product_type, effective_time, title, slug,
    labeler_id, indications_and_usage, dosage_and_administration,
    dosage_forms_and_strengths, warnings_and_precautions, adverse_reactions,
    clinical_pharmacology, clinical_studies, how_supplied,
    use_in_specific_populations, description, nonclinical_toxicology,
    instructions_for_use, mechanism_of_action, contraindications,
    boxed_warning, meta_description, highlights, blocks_json, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
    $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, NOW(), NOW()
) ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    generic_name = EXCLUDED.generic_name,
    product_type = EXCLUDED.product_type,
    effective_time = EXCLUDED.effective_time,
    title = EXCLUDED.title,
    slug = EXCLUDED.slug,
    labeler_id = EXCLUDED.labeler_id,
    indications_and_usage = EXCLUDED.indications_and_usage,
    dosage_and_administration = EXCLUDED.dosage_and_administration,
    dosage_forms_and_strengths = EXCLUDED.dosage_forms_and_strengths,
    warnings_and_precautions = EXCLUDED.warnings_and_precautions,
    adverse_reactions = EXCLUDED.adverse_reactions,
    clinical_pharmacology = EXCLUDED.clinical_pharmacology,
    clinical_studies = EXCLUDED.clinical_studies,
    how_supplied = EXCLUDED.how_supplied,
    use_in_specific_populations = EXCLUDED.use_in_specific_populations,
    description = EXCLUDED.description,
    nonclinical_toxicology = EXCLUDED.nonclinical_toxicology,
    instructions_for_use = EXCLUDED.instructions_for_use,
    mechanism_of_action = EXCLUDED.mechanism_of_action,
    contraindications = EXCLUDED.contraindications,
    boxed_warning = EXCLUDED.boxed_warning,
    meta_description = EXCLUDED.meta_description,
    highlights = EXCLUDED.highlights,
    blocks_json = EXCLUDED.blocks_json,
    updated_at = NOW()`

const updateRankingSQL = `UPDATE drugs SET vector_similar_ranking = $1, updated_at = NOW() WHERE id = $2`

// Catalogue is the relational store of labelers and drugs.
type Catalogue struct {
	db     DB
	close  func()
	logger *slog.Logger
}

var _ storage.RelationalStore = (*Catalogue)(nil)

// NewCatalogue wraps db. Close is a no-op unless closeFn is given.
func NewCatalogue(db DB, closeFn func()) *Catalogue {
	return &Catalogue{
		db:     db,
		close:  closeFn,
		logger: slog.Default().With("component", "postgres"),
	}
}

// EnsureSchema creates the tables when missing.
func (c *Catalogue) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertDocuments writes the labelers of docs, then one drug row per
// document, in a single transaction.
func (c *Catalogue) UpsertDocuments(ctx context.Context, docs []*core.EnrichedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	labelers := make([]string, 0, len(docs))
	for _, doc := range docs {
		labelers = append(labelers, doc.LabelerName())
	}
	slices.Sort(labelers)
	labelers = slices.Compact(labelers)

	err := withTx(ctx, c.db, func(tx pgxTx) error {
		for _, name := range labelers {
			if _, err := tx.Exec(ctx, upsertLabelerSQL, name); err != nil {
				return fmt.Errorf("upsert labeler %q: %w", name, err)
			}
		}

		for _, doc := range docs {
			var labelerID int64
			if err := tx.QueryRow(ctx, selectLabelerSQL, doc.LabelerName()).Scan(&labelerID); err != nil {
				return fmt.Errorf("lookup labeler %q: %w", doc.LabelerName(), err)
			}
			args, err := drugArgs(doc, labelerID)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, upsertDrugSQL, args...); err != nil {
				return fmt.Errorf("upsert drug %s: %w", doc.SetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	c.logger.Info("upserted drugs", "drugs", len(docs), "labelers", len(labelers))
	return nil
}

// drugArgs returns the parameters of upsertDrugSQL in column order.
func drugArgs(doc *core.EnrichedDocument, labelerID int64) ([]any, error) {
	l := &doc.Label

	highlights := []byte("{}")
	if l.Highlights != nil {
		var err error
		if highlights, err = json.Marshal(l.Highlights); err != nil {
			return nil, fmt.Errorf("marshal highlights of %s: %w", doc.SetID, err)
		}
	}
	blocks := []byte("{}")
	if len(doc.ViewBlocks) > 0 {
		var err error
		if blocks, err = json.Marshal(doc.ViewBlocks); err != nil {
			return nil, fmt.Errorf("marshal blocks of %s: %w", doc.SetID, err)
		}
	}

	var effectiveTime *string
	if formatted := core.FormatEffectiveTime(l.Section(core.SectionEffectiveTime)); formatted != "" {
		effectiveTime = &formatted
	}

	var metaDescription *string
	if doc.Summaries.MetaDescription != "" {
		metaDescription = &doc.Summaries.MetaDescription
	}

	return []any{
		doc.SetID,
		doc.DrugName,
		l.GenericName,
		l.ProductType,
		effectiveTime,
		l.Title,
		doc.Slug,
		labelerID,
		l.IndicationsAndUsage,
		l.DosageAndAdministration,
		l.DosageFormsAndStrengths,
		l.WarningsAndPrecautions,
		l.AdverseReactions,
		l.ClinicalPharmacology,
		l.ClinicalStudies,
		l.HowSupplied,
		l.UseInSpecificPopulations,
		l.Description,
		l.NonclinicalToxicology,
		l.InstructionsForUse,
		l.MechanismOfAction,
		l.Contraindications,
		l.BoxedWarning,
		metaDescription,
		string(highlights),
		string(blocks),
	}, nil
}

// UpdateRanking stores a ranking on its drug row as a slug to hits object.
func (c *Catalogue) UpdateRanking(ctx context.Context, ranking *core.SimilarityRanking) error {
	value, err := json.Marshal(ranking.BySlug())
	if err != nil {
		return fmt.Errorf("postgres: marshal ranking of %s: %w", ranking.DocumentID, err)
	}
	tag, err := c.db.Exec(ctx, updateRankingSQL, string(value), ranking.DocumentID)
	if err != nil {
		return fmt.Errorf("postgres: update ranking of %s: %w", ranking.DocumentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: drug %s", storage.ErrNotFound, ranking.DocumentID)
	}
	return nil
}

// Close releases the pool when the catalogue owns it.
func (c *Catalogue) Close() error {
	if c.close != nil {
		c.close()
	}
	return nil
}
