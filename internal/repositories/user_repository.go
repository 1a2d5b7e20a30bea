package repositories

import (
	"context"
	"errors"

	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/store"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrSessionNotFound   = errors.New("session not found")
)

type UserRepository interface {
	// User operations
	FindByID(ctx context.Context, id string) (*models.StoredUser, error)
	Create(ctx context.Context, user *models.StoredUser) error
	// Update применяет mutate к сохраненной записи под блокировкой
	Update(ctx context.Context, id string, mutate func(*models.StoredUser)) (*models.StoredUser, error)

	// Session operations
	SaveSession(ctx context.Context, user models.User) error
	FindSession(ctx context.Context, userID string) (*models.User, error)
	DeleteSession(ctx context.Context, userID string) error
}

type UserRepositoryImpl struct {
	store store.Store
	keys  store.Keys
	locks *keyedMutex
}

func NewUserRepository(s store.Store, keys store.Keys) UserRepository {
	return &UserRepositoryImpl{store: s, keys: keys, locks: newKeyedMutex()}
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*models.StoredUser, error) {
	var user models.StoredUser
	found, err := store.GetJSON(ctx, r.store, r.keys.User(id), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *models.StoredUser) error {
	unlock := r.locks.Lock(user.ID)
	defer unlock()

	_, found, err := r.store.Get(ctx, r.keys.User(user.ID))
	if err != nil {
		return err
	}
	if found {
		return ErrUserAlreadyExists
	}
	return store.SetJSON(ctx, r.store, r.keys.User(user.ID), user)
}

func (r *UserRepositoryImpl) Update(ctx context.Context, id string, mutate func(*models.StoredUser)) (*models.StoredUser, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(user)
	user.ID = id
	if err := store.SetJSON(ctx, r.store, r.keys.User(id), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepositoryImpl) SaveSession(ctx context.Context, user models.User) error {
	return store.SetJSON(ctx, r.store, r.keys.Session(user.ID), user)
}

func (r *UserRepositoryImpl) FindSession(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	found, err := store.GetJSON(ctx, r.store, r.keys.Session(userID), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return &user, nil
}

func (r *UserRepositoryImpl) DeleteSession(ctx context.Context, userID string) error {
	return r.store.Delete(ctx, r.keys.Session(userID))
}
