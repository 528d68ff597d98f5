package signalling

import (
	"context"
	"fmt"
	"log"
	"time"

	"onlycut/internal/config"
	"onlycut/pkg/utils"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

const (
	sessionsPath = "sessions"

	defaultPollInterval = 5 * time.Second
	defaultPollAttempts = 24
)

// Session is the signalling record stored under sessions/<code>.
// Only vanilla ICE is supported: offer and answer carry every candidate.
type Session struct {
	ID     string `json:"sessionId"`
	Offer  string `json:"offer"`
	Answer string `json:"answer"`
}

// FirebaseClient stores sessions in the Firebase Realtime Database
type FirebaseClient struct {
	ref *db.Ref

	pollInterval time.Duration
	pollAttempts int
}

func NewFirebaseClient(ctx context.Context, cfg *config.FirebaseConfig) (*FirebaseClient, error) {
	opt := option.WithCredentialsFile(cfg.CredentialsPath)

	firebaseConfig := &firebase.Config{
		ProjectID:   cfg.ProjectID,
		DatabaseURL: cfg.DatabaseURL,
	}

	app, err := firebase.NewApp(ctx, firebaseConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	return &FirebaseClient{
		ref:          client.NewRef(sessionsPath),
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
	}, nil
}

func (f *FirebaseClient) CreateSession(ctx context.Context, offer string) (string, error) {
	code, err := utils.NewSessionCode()
	if err != nil {
		return "", fmt.Errorf("error generating session code: %w", err)
	}

	session := Session{ID: code, Offer: offer}
	if err := f.ref.Child(code).Set(ctx, session); err != nil {
		return "", fmt.Errorf("error creating session: %w", err)
	}

	log.Printf("Session %s created", code)
	return code, nil
}

func (f *FirebaseClient) getSession(ctx context.Context, sessionID string) (*db.Ref, Session, error) {
	var session Session
	sessionRef := f.ref.Child(sessionID)
	if err := sessionRef.Get(ctx, &session); err != nil {
		return nil, session, fmt.Errorf("error fetching session %s: %w", sessionID, err)
	}
	return sessionRef, session, nil
}

func (f *FirebaseClient) GetOffer(ctx context.Context, sessionID string) (string, error) {
	_, session, err := f.getSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.ID == "" || session.Offer == "" {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session.Offer, nil
}

func (f *FirebaseClient) UpdateAnswer(ctx context.Context, sessionID, answer string) error {
	sessionRef, session, err := f.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.ID == "" {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := sessionRef.Update(ctx, map[string]any{"answer": answer}); err != nil {
		return fmt.Errorf("error updating answer for session %s: %w", sessionID, err)
	}
	return nil
}

func (f *FirebaseClient) WaitForAnswer(ctx context.Context, sessionID string) (string, error) {
	sessionRef, session, err := f.getSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	log.Printf("Waiting for receiver to answer...")
	for i := 0; i < f.pollAttempts; i++ {
		var answer struct {
			Answer string `json:"answer"`
		}
		if err := sessionRef.Get(ctx, &answer); err != nil {
			log.Printf("Error polling session %s: %v", sessionID, err)
		} else if answer.Answer != "" {
			return answer.Answer, nil
		}

		if i < f.pollAttempts-1 {
			select {
			case <-time.After(f.pollInterval):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	if err := f.DeleteSession(ctx, sessionID); err != nil {
		return "", fmt.Errorf("error deleting session: %w", err)
	}
	return "", ErrAnswerTimeout
}

func (f *FirebaseClient) DeleteSession(ctx context.Context, sessionID string) error {
	sessionRef, session, err := f.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.ID == "" {
		log.Printf("Session %s not found, skipping deletion", sessionID)
		return nil
	}

	if err := sessionRef.Delete(ctx); err != nil {
		return fmt.Errorf("error deleting session %s: %w", sessionID, err)
	}
	return nil
}
