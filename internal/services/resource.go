package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/anonymize"
	"github.com/oncotrace/oncotrace-backend/internal/platform/ctxutil"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
	"github.com/oncotrace/oncotrace-backend/internal/schema/filters"
	"github.com/oncotrace/oncotrace-backend/internal/schema/marshal"
)

// SubtypeDef binds one discriminator value of a polymorphic resource to
// its typed payload model.
type SubtypeDef struct {
	Model any
}

// ResourceDefinition declares one exposed resource. The handler layer
// derives routes from Name; everything else drives the service.
type ResourceDefinition struct {
	Name          string
	Model         any
	ReadOptions   []schema.Option
	CreateOptions []schema.Option

	// Discriminator names the envelope field whose value selects the
	// subtype payload key (polymorphic resources only).
	Discriminator string
	Subtypes      map[string]SubtypeDef

	// TriggersLines marks resources whose writes can change therapy-line
	// assignment.
	TriggersLines bool

	// ReadOnly resources reject create, update and delete at the handler
	// layer; their rows are produced by the system.
	ReadOnly bool

	BeforeCreate func(ctx context.Context, tx *gorm.DB, payload map[string]any) error
	BeforeUpdate func(ctx context.Context, tx *gorm.DB, payload map[string]any) error
	AfterCreate  func(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type ListParams struct {
	Query      url.Values
	Page       int
	PageSize   int
	Sort       string
	Anonymized bool
}

type ListResult struct {
	Items    []map[string]any
	Total    int64
	Page     int
	PageSize int
}

type ResourceService interface {
	List(ctx context.Context, def *ResourceDefinition, params ListParams) (*ListResult, error)
	Get(ctx context.Context, def *ResourceDefinition, id uuid.UUID, anonymized bool) (map[string]any, error)
	Create(ctx context.Context, def *ResourceDefinition, payload map[string]any) (uuid.UUID, error)
	Update(ctx context.Context, def *ResourceDefinition, id uuid.UUID, payload map[string]any) error
	Delete(ctx context.Context, def *ResourceDefinition, id uuid.UUID) error
}

type resourceService struct {
	db      *gorm.DB
	log     *logger.Logger
	factory *schema.Factory
	lines   TherapyLineService
}

func NewResourceService(db *gorm.DB, baseLog *logger.Logger, factory *schema.Factory, lines TherapyLineService) ResourceService {
	serviceLog := baseLog.With("service", "ResourceService")
	return &resourceService{
		db:      db,
		log:     serviceLog,
		factory: factory,
		lines:   lines,
	}
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func (rs *resourceService) List(ctx context.Context, def *ResourceDefinition, params ListParams) (*ListResult, error) {
	readSchema, err := rs.factory.Read(def.Model, def.ReadOptions...)
	if err != nil {
		return nil, err
	}
	filterSchema, err := rs.factory.Filter(def.Model, def.ReadOptions...)
	if err != nil {
		return nil, err
	}

	tx := rs.db.WithContext(ctx).Model(readSchema.New())
	tx, err = filters.Apply(tx, filterSchema, params.Query)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, errs.FromDB(err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	order, err := orderClause(readSchema, params.Sort)
	if err != nil {
		return nil, err
	}

	rows := readSchema.NewSlice()
	if err := tx.Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(rows).Error; err != nil {
		return nil, errs.FromDB(err)
	}

	items, err := marshal.ReadAll(ctx, rs.db, readSchema, rows)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := rs.mergeSubtype(ctx, def, item); err != nil {
			return nil, err
		}
		if params.Anonymized {
			anonymize.Apply(readSchema, item)
		}
	}

	return &ListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (rs *resourceService) Get(ctx context.Context, def *ResourceDefinition, id uuid.UUID, anonymized bool) (map[string]any, error) {
	readSchema, err := rs.factory.Read(def.Model, def.ReadOptions...)
	if err != nil {
		return nil, err
	}

	row := readSchema.New()
	if err := rs.db.WithContext(ctx).First(row, "id = ?", id).Error; err != nil {
		return nil, errs.FromDB(err)
	}

	envelope, err := marshal.Read(ctx, rs.db, readSchema, row)
	if err != nil {
		return nil, err
	}
	if err := rs.mergeSubtype(ctx, def, envelope); err != nil {
		return nil, err
	}
	if anonymized {
		anonymize.Apply(readSchema, envelope)
	}
	return envelope, nil
}

func (rs *resourceService) Create(ctx context.Context, def *ResourceDefinition, payload map[string]any) (uuid.UUID, error) {
	createSchema, err := rs.factory.Create(def.Model, def.CreateOptions...)
	if err != nil {
		return uuid.Nil, err
	}

	payload, subTag, subPayload, err := rs.splitSubtype(def, payload, "")
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	var caseID uuid.UUID
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if def.BeforeCreate != nil {
			if err := def.BeforeCreate(ctx, tx, payload); err != nil {
				return err
			}
		}

		row, err := marshal.Create(ctx, tx, createSchema, payload)
		if err != nil {
			return err
		}
		id = rowUUID(row, "ID")
		caseID = rowUUID(row, "CaseID")

		if rd := ctxutil.GetRequestData(ctx); rd != nil {
			if err := rs.stampCreator(ctx, tx, def, id, rd.UserID); err != nil {
				return err
			}
		}
		if def.AfterCreate != nil {
			if err := def.AfterCreate(ctx, tx, id); err != nil {
				return err
			}
		}

		if subTag != "" {
			subSchema, err := rs.factory.Create(def.Subtypes[subTag].Model)
			if err != nil {
				return err
			}
			subRow, err := marshal.Populate(ctx, tx, subSchema, subPayload)
			if err != nil {
				return err
			}
			if err := marshal.ReplaceSubtype(ctx, tx, id, nil, subRow); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	rs.afterWrite(ctx, def, caseID)
	return id, nil
}

func (rs *resourceService) Update(ctx context.Context, def *ResourceDefinition, id uuid.UUID, payload map[string]any) error {
	createSchema, err := rs.factory.Create(def.Model, def.CreateOptions...)
	if err != nil {
		return err
	}

	row := createSchema.New()
	if err := rs.db.WithContext(ctx).First(row, "id = ?", id).Error; err != nil {
		return errs.FromDB(err)
	}
	currentTag := rs.discriminatorValue(createSchema, def, row)

	payload, subTag, subPayload, err := rs.splitSubtype(def, payload, currentTag)
	if err != nil {
		return err
	}

	var caseID uuid.UUID
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if def.BeforeUpdate != nil {
			if err := def.BeforeUpdate(ctx, tx, payload); err != nil {
				return err
			}
		}
		if err := marshal.Update(ctx, tx, createSchema, payload, row); err != nil {
			return err
		}
		caseID = rowUUID(row, "CaseID")

		if rd := ctxutil.GetRequestData(ctx); rd != nil {
			if err := rs.stampUpdater(ctx, tx, def, id, rd.UserID); err != nil {
				return err
			}
		}

		if subTag != "" {
			subSchema, err := rs.factory.Create(def.Subtypes[subTag].Model)
			if err != nil {
				return err
			}
			subRow, err := marshal.Populate(ctx, tx, subSchema, subPayload)
			if err != nil {
				return err
			}
			var old any
			if currentTag != "" {
				oldSchema, err := rs.factory.Create(def.Subtypes[currentTag].Model)
				if err != nil {
					return err
				}
				old = oldSchema.New()
			}
			if err := marshal.ReplaceSubtype(ctx, tx, id, old, subRow); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	rs.afterWrite(ctx, def, caseID)
	return nil
}

func (rs *resourceService) Delete(ctx context.Context, def *ResourceDefinition, id uuid.UUID) error {
	readSchema, err := rs.factory.Read(def.Model, def.ReadOptions...)
	if err != nil {
		return err
	}

	row := readSchema.New()
	if err := rs.db.WithContext(ctx).First(row, "id = ?", id).Error; err != nil {
		return errs.FromDB(err)
	}
	caseID := rowUUID(row, "CaseID")

	if err := rs.db.WithContext(ctx).Delete(row).Error; err != nil {
		return errs.FromDB(err)
	}

	rs.afterWrite(ctx, def, caseID)
	return nil
}

// afterWrite triggers the synchronous therapy-line rebuild once the
// triggering transaction has committed.
func (rs *resourceService) afterWrite(ctx context.Context, def *ResourceDefinition, caseID uuid.UUID) {
	if !def.TriggersLines || caseID == uuid.Nil || rs.lines == nil {
		return
	}
	if err := rs.lines.Rebuild(ctx, caseID); err != nil {
		rs.log.Error("Therapy line rebuild failed", "case_id", caseID, "resource", def.Name, "error", err)
	}
}

// splitSubtype pops the typed payload off a polymorphic envelope. The
// discriminator value selects the payload key; fallbackTag covers updates
// that do not resend the discriminator.
func (rs *resourceService) splitSubtype(def *ResourceDefinition, payload map[string]any, fallbackTag string) (map[string]any, string, map[string]any, error) {
	if def.Discriminator == "" {
		return payload, "", nil, nil
	}

	clone := make(map[string]any, len(payload))
	for k, v := range payload {
		clone[k] = v
	}

	tag := fallbackTag
	if raw, ok := clone[def.Discriminator]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, "", nil, errs.InvalidArgumentf("field %q expects a string", def.Discriminator)
		}
		tag = s
	}
	if tag == "" {
		return nil, "", nil, errs.InvalidArgumentf("missing required field %q", def.Discriminator)
	}
	if _, ok := def.Subtypes[tag]; !ok {
		return nil, "", nil, errs.InvalidArgumentf("unknown %s %q", def.Discriminator, tag)
	}

	subPayload := map[string]any{}
	if raw, ok := clone[tag]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, "", nil, errs.InvalidArgumentf("field %q expects an object", tag)
		}
		subPayload = m
		delete(clone, tag)
	}
	return clone, tag, subPayload, nil
}

// mergeSubtype loads the typed row sharing the parent's pk and nests its
// envelope under the discriminator value.
func (rs *resourceService) mergeSubtype(ctx context.Context, def *ResourceDefinition, envelope map[string]any) error {
	if def.Discriminator == "" {
		return nil
	}
	tag, _ := envelope[def.Discriminator].(string)
	sub, ok := def.Subtypes[tag]
	if !ok {
		return nil
	}
	pk, ok := envelopeUUID(envelope["id"])
	if !ok {
		return nil
	}

	subSchema, err := rs.factory.Read(sub.Model)
	if err != nil {
		return err
	}
	subRow := subSchema.New()
	if err := rs.db.WithContext(ctx).First(subRow, "id = ?", pk).Error; err != nil {
		mapped := errs.FromDB(err)
		if errors.Is(mapped, errs.ErrNotFound) {
			return nil
		}
		return mapped
	}
	subEnvelope, err := marshal.Read(ctx, rs.db, subSchema, subRow)
	if err != nil {
		return err
	}
	delete(subEnvelope, "id")
	envelope[tag] = subEnvelope
	return nil
}

func (rs *resourceService) discriminatorValue(s *schema.Schema, def *ResourceDefinition, row any) string {
	if def.Discriminator == "" {
		return ""
	}
	spec, ok := s.Field(def.Discriminator)
	if !ok {
		return ""
	}
	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	f := rv.FieldByName(spec.Name)
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}

func (rs *resourceService) stampCreator(ctx context.Context, tx *gorm.DB, def *ResourceDefinition, id, userID uuid.UUID) error {
	res := tx.WithContext(ctx).
		Model(def.Model).
		Where("id = ?", id).
		Update("created_by_id", userID)
	return errs.FromDB(res.Error)
}

func (rs *resourceService) stampUpdater(ctx context.Context, tx *gorm.DB, def *ResourceDefinition, id, userID uuid.UUID) error {
	res := tx.WithContext(ctx).
		Model(def.Model).
		Where("id = ?", id).
		Updates(map[string]any{
			"updated_at": gorm.Expr("now()"),
			"updated_by_ids": gorm.Expr(
				`coalesce(updated_by_ids, '[]'::jsonb) || to_jsonb(?::text)`, userID.String()),
		})
	return errs.FromDB(res.Error)
}

func orderClause(s *schema.Schema, sort string) (string, error) {
	if sort == "" {
		return "created_at", nil
	}
	desc := strings.HasPrefix(sort, "-")
	name := strings.TrimPrefix(sort, "-")
	spec, ok := s.Field(name)
	if !ok || spec.Column == "" {
		return "", errs.InvalidArgumentf("cannot sort by %q", name)
	}
	if desc {
		return spec.Column + " DESC", nil
	}
	return spec.Column, nil
}

func rowUUID(row any, field string) uuid.UUID {
	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	f := rv.FieldByName(field)
	if !f.IsValid() {
		return uuid.Nil
	}
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return uuid.Nil
		}
		f = f.Elem()
	}
	if id, ok := f.Interface().(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func envelopeUUID(v any) (uuid.UUID, bool) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, true
	case string:
		id, err := uuid.Parse(t)
		return id, err == nil
	case fmt.Stringer:
		id, err := uuid.Parse(t.String())
		return id, err == nil
	default:
		return uuid.Nil, false
	}
}
