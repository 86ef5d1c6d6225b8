// Package docstore implements database.Store on top of Cloud Firestore.
//
// Inside RunInTx every repository call goes through the same firestore.Transaction, so all reads
// must happen before the first write. Callers order their steps accordingly: load, decide,
// then mutate.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

const (
	vinylsCollection       = "vinyls"
	reservationsCollection = "reservations"
	wishlistCollection     = "wishlist"
	usersCollection        = "users"
	attemptsCollection     = "keep_attempts"
)

func New(ctx context.Context, projectID string) (*firestore.Client, func() error, error) {
	c, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("can't create firestore client: %w", err)
	}

	return c, c.Close, nil
}

type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) repos() *repos {
	return &repos{client: s.client}
}

func (s *Store) Vinyls() database.VinylRepository             { return s.repos() }
func (s *Store) Reservations() database.ReservationRepository { return (*reservationRepo)(s.repos()) }
func (s *Store) Wishlist() database.WishlistRepository        { return (*wishlistRepo)(s.repos()) }
func (s *Store) Users() database.UserRepository               { return (*userRepo)(s.repos()) }
func (s *Store) KeepAttempts() database.KeepAttemptRepository { return (*attemptRepo)(s.repos()) }

func (s *Store) RunInTx(ctx context.Context, fn database.TxFunc) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		r := &repos{client: s.client, tx: tx, reads: make(map[string]*firestore.DocumentSnapshot)}
		return fn(ctx, txRepositories{r})
	})
}

type txRepositories struct {
	r *repos
}

func (t txRepositories) Vinyls() database.VinylRepository             { return t.r }
func (t txRepositories) Reservations() database.ReservationRepository { return (*reservationRepo)(t.r) }
func (t txRepositories) Wishlist() database.WishlistRepository        { return (*wishlistRepo)(t.r) }
func (t txRepositories) Users() database.UserRepository               { return (*userRepo)(t.r) }

// repos holds what every repository needs. tx is nil outside of transactions.
type repos struct {
	client *firestore.Client
	tx     *firestore.Transaction
	reads  map[string]*firestore.DocumentSnapshot
}

// atomically runs fn in the current transaction or in a new one.
func (r *repos) atomically(ctx context.Context, fn func(r *repos) error) error {
	if r.tx != nil {
		return fn(r)
	}

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(&repos{client: r.client, tx: tx, reads: make(map[string]*firestore.DocumentSnapshot)})
	})
}

func (r *repos) get(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	var (
		snap *firestore.DocumentSnapshot
		err  error
	)

	if r.tx != nil {
		snap, err = r.tx.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}

	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s: %w", ref.Path, database.ErrNotFound)
		}
		return nil, fmt.Errorf("can't get %s: %w", ref.Path, err)
	}

	if r.tx != nil {
		r.reads[ref.Path] = snap
	}

	return snap, nil
}

func (r *repos) getAll(ctx context.Context, refs []*firestore.DocumentRef) ([]*firestore.DocumentSnapshot, error) {
	if r.tx != nil {
		return r.tx.GetAll(refs)
	}
	return r.client.GetAll(ctx, refs)
}

func (r *repos) query(ctx context.Context, q firestore.Query) ([]*firestore.DocumentSnapshot, error) {
	if r.tx != nil {
		return r.tx.Documents(q).GetAll()
	}
	return q.Documents(ctx).GetAll()
}

func (r *repos) create(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	var err error
	if r.tx != nil {
		err = r.tx.Create(ref, data)
	} else {
		_, err = ref.Create(ctx, data)
	}

	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%s: %w", ref.Path, database.ErrConflict)
	}
	return err
}

func (r *repos) vinylRef(id uuid.UUID) *firestore.DocumentRef {
	return r.client.Collection(vinylsCollection).Doc(id.String())
}

// Vinyls.

func (r *repos) Get(ctx context.Context, id uuid.UUID) (model.Vinyl, error) {
	snap, err := r.get(ctx, r.vinylRef(id))
	if err != nil {
		return model.Vinyl{}, err
	}

	return decodeVinyl(snap)
}

func (r *repos) Create(ctx context.Context, v model.Vinyl) error {
	if err := r.create(ctx, r.vinylRef(v.ID), v); err != nil {
		return fmt.Errorf("can't create vinyl: %w", err)
	}
	return nil
}

// GetPage orders by created_at and filters on the client: an inequality filter on stock
// would force ordering by stock first.
func (r *repos) GetPage(ctx context.Context, onlyAvailable bool, num, size int) ([]model.Vinyl, int, error) {
	snaps, err := r.query(ctx, r.client.Collection(vinylsCollection).OrderBy("created_at", firestore.Desc))
	if err != nil {
		return nil, 0, fmt.Errorf("can't query vinyls: %w", err)
	}

	all := make([]model.Vinyl, 0, len(snaps))
	for _, snap := range snaps {
		v, err := decodeVinyl(snap)
		if err != nil {
			return nil, 0, err
		}

		if onlyAvailable && v.Stock <= 0 {
			continue
		}
		all = append(all, v)
	}

	start := (num - 1) * size
	if num < 1 || size < 1 || start >= len(all) {
		return []model.Vinyl{}, len(all), nil
	}

	return all[start:min(start+size, len(all))], len(all), nil
}

func (r *repos) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.VinylSummary, error) {
	res := make(map[uuid.UUID]model.VinylSummary, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.vinylRef(id))
	}

	snaps, err := r.getAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("can't get vinyls: %w", err)
	}

	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}

		v, err := decodeVinyl(snap)
		if err != nil {
			return nil, err
		}
		res[v.ID] = v.Summary()
	}

	return res, nil
}

// Update rewrites catalog fields only, so it can't race with the stock writes of addStock.
func (r *repos) Update(ctx context.Context, v model.Vinyl) error {
	return r.atomically(ctx, func(r *repos) error {
		ref := r.vinylRef(v.ID)
		if _, err := r.get(ctx, ref); err != nil {
			return err
		}

		return r.tx.Update(ref, []firestore.Update{
			{Path: "title", Value: v.Title},
			{Path: "artist", Value: v.Artist},
			{Path: "year", Value: v.Year},
			{Path: "genre", Value: v.Genre},
			{Path: "price", Value: v.Price},
			{Path: "description", Value: v.Description},
			{Path: "cover_url", Value: v.CoverURL},
			{Path: "audio_url", Value: v.AudioURL},
		})
	})
}

// Delete fails with ErrConflict while any reservation references the vinyl. Wishlist entries go with it.
func (r *repos) Delete(ctx context.Context, id uuid.UUID) error {
	return r.atomically(ctx, func(r *repos) error {
		ref := r.vinylRef(id)
		if _, err := r.get(ctx, ref); err != nil {
			return err
		}

		reserved, err := r.query(ctx, r.client.Collection(reservationsCollection).Where("vinyl_id", "==", id.String()).Limit(1))
		if err != nil {
			return fmt.Errorf("can't query reservations: %w", err)
		}
		if len(reserved) > 0 {
			return fmt.Errorf("vinyl %s is reserved: %w", id, database.ErrConflict)
		}

		wished, err := r.query(ctx, r.client.Collection(wishlistCollection).Where("vinyl_id", "==", id.String()))
		if err != nil {
			return fmt.Errorf("can't query wishlist: %w", err)
		}

		for _, snap := range wished {
			if err := r.tx.Delete(snap.Ref); err != nil {
				return err
			}
		}

		return r.tx.Delete(ref)
	})
}

func (r *repos) DecrementStock(ctx context.Context, id uuid.UUID) (int, error) {
	return r.addStock(ctx, id, -1)
}

func (r *repos) IncrementStock(ctx context.Context, id uuid.UUID) (int, error) {
	return r.addStock(ctx, id, 1)
}

func (r *repos) addStock(ctx context.Context, id uuid.UUID, delta int) (stock int, err error) {
	err = r.atomically(ctx, func(r *repos) error {
		ref := r.vinylRef(id)

		snap, err := r.get(ctx, ref)
		if err != nil {
			return err
		}

		v, err := decodeVinyl(snap)
		if err != nil {
			return err
		}

		if v.Stock+delta < 0 {
			return model.ErrInsufficientStock
		}

		stock = v.Stock + delta
		return r.tx.Update(ref, []firestore.Update{{Path: "stock", Value: stock}})
	})

	return stock, err
}

func decodeVinyl(snap *firestore.DocumentSnapshot) (model.Vinyl, error) {
	var v model.Vinyl
	if err := snap.DataTo(&v); err != nil {
		return model.Vinyl{}, fmt.Errorf("can't decode vinyl %s: %w", snap.Ref.ID, err)
	}

	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return model.Vinyl{}, fmt.Errorf("invalid vinyl id %q: %w", snap.Ref.ID, err)
	}
	v.ID = id

	return v, nil
}

// Reservations.

type reservationRepo repos

type reservationDoc struct {
	OwnerID    string    `firestore:"owner_id"`
	VinylID    string    `firestore:"vinyl_id"`
	ReservedAt time.Time `firestore:"reserved_at"`
	ExpiresAt  time.Time `firestore:"expires_at"`
	Status     string    `firestore:"status"`
}

func (rr *reservationRepo) ref(id uuid.UUID) *firestore.DocumentRef {
	return rr.client.Collection(reservationsCollection).Doc(id.String())
}

func (rr *reservationRepo) Insert(ctx context.Context, res model.Reservation) error {
	doc := reservationDoc{
		OwnerID:    res.OwnerID.String(),
		VinylID:    res.VinylID.String(),
		ReservedAt: res.ReservedAt,
		ExpiresAt:  res.ExpiresAt,
		Status:     string(res.Status),
	}

	if err := (*repos)(rr).create(ctx, rr.ref(res.ID), doc); err != nil {
		return fmt.Errorf("can't insert reservation: %w", err)
	}
	return nil
}

func (rr *reservationRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Reservation, error) {
	snap, err := (*repos)(rr).get(ctx, rr.ref(id))
	if err != nil {
		return model.Reservation{}, err
	}

	return decodeReservation(snap)
}

func (rr *reservationRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Reservation, error) {
	q := rr.client.Collection(reservationsCollection).
		Where("owner_id", "==", ownerID.String()).
		OrderBy("reserved_at", firestore.Desc)

	return rr.find(ctx, q)
}

func (rr *reservationRepo) FindAll(ctx context.Context) ([]model.Reservation, error) {
	return rr.find(ctx, rr.client.Collection(reservationsCollection).OrderBy("reserved_at", firestore.Desc))
}

func (rr *reservationRepo) FindOverdue(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	q := rr.client.Collection(reservationsCollection).
		Where("status", "==", string(model.StatusActive)).
		Where("expires_at", "<", now).
		OrderBy("expires_at", firestore.Asc)

	return rr.find(ctx, q)
}

func (rr *reservationRepo) ExistsForVinyl(ctx context.Context, vinylID uuid.UUID) (bool, error) {
	q := rr.client.Collection(reservationsCollection).Where("vinyl_id", "==", vinylID.String()).Limit(1)

	snaps, err := (*repos)(rr).query(ctx, q)
	if err != nil {
		return false, fmt.Errorf("can't query reservations: %w", err)
	}

	return len(snaps) > 0, nil
}

// UpdateStatus compares against the snapshot read earlier in the same transaction when there is one,
// so it can follow other writes. The transaction fails to commit if that document changed since.
func (rr *reservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status) error {
	return (*repos)(rr).atomically(ctx, func(r *repos) error {
		ref := rr.ref(id)

		snap, ok := r.reads[ref.Path]
		if !ok {
			var err error
			if snap, err = r.get(ctx, ref); err != nil {
				return err
			}
		}

		current, err := decodeReservation(snap)
		if err != nil {
			return err
		}

		if current.Status != from {
			return fmt.Errorf("reservation %s is not %s anymore: %w", id, from, database.ErrConflict)
		}

		return r.tx.Update(ref, []firestore.Update{{Path: "status", Value: string(to)}})
	})
}

func (rr *reservationRepo) find(ctx context.Context, q firestore.Query) ([]model.Reservation, error) {
	snaps, err := (*repos)(rr).query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("can't query reservations: %w", err)
	}

	res := make([]model.Reservation, 0, len(snaps))
	for _, snap := range snaps {
		r, err := decodeReservation(snap)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}

	return res, nil
}

func decodeReservation(snap *firestore.DocumentSnapshot) (model.Reservation, error) {
	var doc reservationDoc
	if err := snap.DataTo(&doc); err != nil {
		return model.Reservation{}, fmt.Errorf("can't decode reservation %s: %w", snap.Ref.ID, err)
	}

	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("invalid reservation id %q: %w", snap.Ref.ID, err)
	}

	ownerID, err := uuid.Parse(doc.OwnerID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("invalid owner id %q: %w", doc.OwnerID, err)
	}

	vinylID, err := uuid.Parse(doc.VinylID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("invalid vinyl id %q: %w", doc.VinylID, err)
	}

	return model.Reservation{
		ID:         id,
		OwnerID:    ownerID,
		VinylID:    vinylID,
		ReservedAt: doc.ReservedAt,
		ExpiresAt:  doc.ExpiresAt,
		Status:     model.Status(doc.Status),
	}, nil
}

// Wishlist.

type wishlistRepo repos

type wishlistDoc struct {
	UserID    string    `firestore:"user_id"`
	VinylID   string    `firestore:"vinyl_id"`
	CreatedAt time.Time `firestore:"created_at"`
}

func (wr *wishlistRepo) ref(userID, vinylID uuid.UUID) *firestore.DocumentRef {
	return wr.client.Collection(wishlistCollection).Doc(userID.String() + "_" + vinylID.String())
}

func (wr *wishlistRepo) Exists(ctx context.Context, userID, vinylID uuid.UUID) (bool, error) {
	_, err := (*repos)(wr).get(ctx, wr.ref(userID, vinylID))
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (wr *wishlistRepo) Add(ctx context.Context, e model.WishlistEntry) error {
	doc := wishlistDoc{UserID: e.UserID.String(), VinylID: e.VinylID.String(), CreatedAt: e.CreatedAt}
	if err := (*repos)(wr).create(ctx, wr.ref(e.UserID, e.VinylID), doc); err != nil {
		return fmt.Errorf("can't add to wishlist: %w", err)
	}
	return nil
}

func (wr *wishlistRepo) Remove(ctx context.Context, userID, vinylID uuid.UUID) error {
	ref := wr.ref(userID, vinylID)

	var err error
	if wr.tx != nil {
		err = wr.tx.Delete(ref, firestore.Exists)
	} else {
		_, err = ref.Delete(ctx, firestore.Exists)
	}

	if status.Code(err) == codes.NotFound {
		return database.ErrNotFound
	}
	return err
}

func (wr *wishlistRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]model.WishlistEntry, error) {
	q := wr.client.Collection(wishlistCollection).
		Where("user_id", "==", userID.String()).
		OrderBy("created_at", firestore.Desc)

	snaps, err := (*repos)(wr).query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("can't query wishlist: %w", err)
	}

	res := make([]model.WishlistEntry, 0, len(snaps))
	for _, snap := range snaps {
		var doc wishlistDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("can't decode wishlist entry %s: %w", snap.Ref.ID, err)
		}

		vinylID, err := uuid.Parse(doc.VinylID)
		if err != nil {
			return nil, fmt.Errorf("invalid vinyl id %q: %w", doc.VinylID, err)
		}

		res = append(res, model.WishlistEntry{UserID: userID, VinylID: vinylID, CreatedAt: doc.CreatedAt})
	}

	return res, nil
}

// Users.

type userRepo repos

type userDoc struct {
	Username string `firestore:"username"`
	Email    string `firestore:"email"`
}

func (ur *userRepo) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error) {
	res := make(map[uuid.UUID]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, ur.client.Collection(usersCollection).Doc(id.String()))
	}

	snaps, err := (*repos)(ur).getAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("can't get users: %w", err)
	}

	for i, snap := range snaps {
		if !snap.Exists() {
			continue
		}

		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("can't decode user %s: %w", snap.Ref.ID, err)
		}

		res[ids[i]] = model.UserSummary{ID: ids[i], Username: doc.Username, Email: doc.Email}
	}

	return res, nil
}

// Keep attempts.

type attemptRepo repos

type attemptDoc struct {
	UserID        string    `firestore:"user_id"`
	VinylID       string    `firestore:"vinyl_id"`
	CreatedAt     time.Time `firestore:"created_at"`
	ReservationID string    `firestore:"reservation_id,omitempty"`
	Error         string    `firestore:"error,omitempty"`
}

func (ar *attemptRepo) Add(ctx context.Context, kas ...model.KeepAttempt) error {
	coll := ar.client.Collection(attemptsCollection)

	for _, ka := range kas {
		doc := attemptDoc{
			UserID:    ka.UserID.String(),
			VinylID:   ka.VinylID.String(),
			CreatedAt: ka.CreatedAt,
			Error:     ka.Error,
		}
		if ka.ReservationID != uuid.Nil {
			doc.ReservationID = ka.ReservationID.String()
		}

		if _, _, err := coll.Add(ctx, doc); err != nil {
			return fmt.Errorf("can't add keep attempt: %w", err)
		}
	}

	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
