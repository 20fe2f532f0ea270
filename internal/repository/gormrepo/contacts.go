package gormrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"contacts-service/internal/model"
	"contacts-service/internal/repository"
	"contacts-service/prometheus"
)

// ContactRepository stores contacts in the contacts table. Every query
// carries an owner_id condition.
type ContactRepository struct {
	db *gorm.DB
}

var _ repository.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository creates a ContactRepository.
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) owned(ctx context.Context, ownerID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&contactRecord{}).Where("owner_id = ?", ownerID)
}

func (r *ContactRepository) List(ctx context.Context, ownerID string, filter model.ContactFilter) ([]model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.list")(time.Now())

	oid, err := parseID(ownerID)
	if err != nil {
		return []model.Contact{}, nil
	}

	query := r.owned(ctx, oid)
	if filter.Favorite != nil {
		query = query.Where("favorite = ?", *filter.Favorite)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset())
	}

	var recs []contactRecord
	if err := query.Order("id ASC").Find(&recs).Error; err != nil {
		return nil, translate(err)
	}

	contacts := make([]model.Contact, 0, len(recs))
	for i := range recs {
		contacts = append(contacts, *recs[i].toModel())
	}
	return contacts, nil
}

func (r *ContactRepository) Get(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.get")(time.Now())

	oid, cid, err := parseIDs(ownerID, id)
	if err != nil {
		return nil, err
	}

	var rec contactRecord
	if err := r.owned(ctx, oid).Where("id = ?", cid).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	defer prometheus.TrackDBOperation("contacts.create")(time.Now())

	oid, err := parseID(contact.Owner)
	if err != nil {
		return err
	}

	rec := contactRecord{
		Name:     contact.Name,
		Email:    contact.Email,
		Phone:    contact.Phone,
		Favorite: contact.Favorite,
		OwnerID:  oid,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}

	*contact = *rec.toModel()
	return nil
}

func (r *ContactRepository) Replace(ctx context.Context, ownerID, id string, fields model.Contact) (*model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.update")(time.Now())

	return r.update(ctx, ownerID, id, map[string]any{
		"name":     fields.Name,
		"email":    fields.Email,
		"phone":    fields.Phone,
		"favorite": fields.Favorite,
	})
}

func (r *ContactRepository) Patch(ctx context.Context, ownerID, id string, patch model.ContactPatch) (*model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.update")(time.Now())

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Favorite != nil {
		updates["favorite"] = *patch.Favorite
	}
	if len(updates) == 0 {
		return r.Get(ctx, ownerID, id)
	}
	return r.update(ctx, ownerID, id, updates)
}

func (r *ContactRepository) update(ctx context.Context, ownerID, id string, updates map[string]any) (*model.Contact, error) {
	oid, cid, err := parseIDs(ownerID, id)
	if err != nil {
		return nil, err
	}

	result := r.owned(ctx, oid).Where("id = ?", cid).Updates(updates)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}

	var rec contactRecord
	if err := r.owned(ctx, oid).Where("id = ?", cid).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (r *ContactRepository) Delete(ctx context.Context, ownerID, id string) error {
	defer prometheus.TrackDBOperation("contacts.delete")(time.Now())

	oid, cid, err := parseIDs(ownerID, id)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", cid, oid).Delete(&contactRecord{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func parseIDs(ownerID, id string) (uint, uint, error) {
	oid, err := parseID(ownerID)
	if err != nil {
		return 0, 0, err
	}
	cid, err := parseID(id)
	if err != nil {
		return 0, 0, err
	}
	return oid, cid, nil
}
