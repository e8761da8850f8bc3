package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"github.com/irislabs/go-iris/internal/log"
)

// GoogleDocsClient handles OAuth2 authentication and Google Docs API
// operations for journal sync.
type GoogleDocsClient struct {
	config      *oauth2.Config
	token       *oauth2.Token
	tokenPath   string
	docsService *docs.Service

	mu sync.RWMutex
}

// GoogleDocsConfig configures the Google Docs client.
type GoogleDocsConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8181/api/journal/callback"
	TokenPath    string // Path to store token (default: ~/.iris/google_token.json)
}

// NewGoogleDocsClient creates a new Google Docs client.
func NewGoogleDocsClient(cfg GoogleDocsConfig) (*GoogleDocsClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:8181/api/journal/callback"
	}

	if cfg.TokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(homeDir, ".iris", "google_token.json")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/documents",
			"https://www.googleapis.com/auth/drive.file",
		},
		Endpoint: google.Endpoint,
	}

	client := &GoogleDocsClient{
		config:    oauthConfig,
		tokenPath: cfg.TokenPath,
	}

	// Try to load existing token
	if err := client.loadToken(); err == nil {
		if err := client.initService(); err != nil {
			// Token might be expired, will need re-auth
			client.token = nil
		}
	}

	return client, nil
}

// IsAuthenticated returns true if the client has a valid token.
func (g *GoogleDocsClient) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != nil && g.token.Valid()
}

// AuthURL returns the OAuth2 authorization URL for user consent.
func (g *GoogleDocsClient) AuthURL() string {
	return g.config.AuthCodeURL("iris-journal", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback processes the OAuth2 callback with the authorization code.
func (g *GoogleDocsClient) HandleCallback(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	if err := g.saveToken(); err != nil {
		log.Warn("journal: failed to save token", "error", err)
	}

	if err := g.initService(); err != nil {
		return fmt.Errorf("failed to initialize docs service: %w", err)
	}

	return nil
}

// Disconnect clears the authentication and removes the stored token.
func (g *GoogleDocsClient) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.token = nil
	g.docsService = nil

	if err := os.Remove(g.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	return nil
}

// CreateDoc creates a new Google Doc with the given title and content.
func (g *GoogleDocsClient) CreateDoc(title, content string) (string, error) {
	g.mu.RLock()
	service := g.docsService
	g.mu.RUnlock()

	if service == nil {
		return "", fmt.Errorf("not authenticated - please connect to Google first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc := &docs.Document{
		Title: title,
	}

	createdDoc, err := service.Documents.Create(doc).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	if content != "" {
		requests := []*docs.Request{
			{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{
						Index: 1,
					},
					Text: content,
				},
			},
		}

		_, err = service.Documents.BatchUpdate(createdDoc.DocumentId, &docs.BatchUpdateDocumentRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return createdDoc.DocumentId, fmt.Errorf("created doc but failed to add content: %w", err)
		}
	}

	return createdDoc.DocumentId, nil
}

// UpdateDoc replaces the content of an existing Google Doc.
func (g *GoogleDocsClient) UpdateDoc(docID, content string) error {
	g.mu.RLock()
	service := g.docsService
	g.mu.RUnlock()

	if service == nil {
		return fmt.Errorf("not authenticated - please connect to Google first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Get current document to find the end index
	doc, err := service.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	// End index minus 1 for the trailing newline
	endIndex := doc.Body.Content[len(doc.Body.Content)-1].EndIndex - 1

	requests := []*docs.Request{}

	// Delete existing content if any (keep at least index 1)
	if endIndex > 1 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{
					StartIndex: 1,
					EndIndex:   endIndex,
				},
			},
		})
	}

	requests = append(requests, &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{
				Index: 1,
			},
			Text: content,
		},
	})

	_, err = service.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	return nil
}

// SyncEntry syncs a journal entry to Google Docs.
// Creates a new doc if GoogleDocID is empty, updates the doc otherwise.
func (g *GoogleDocsClient) SyncEntry(entry *Entry) error {
	if !g.IsAuthenticated() {
		return fmt.Errorf("not authenticated - please connect to Google first")
	}

	content := formatEntryForDoc(entry)

	if entry.GoogleDocID == "" {
		docID, err := g.CreateDoc(entry.Title(), content)
		if err != nil {
			entry.MarkSyncError()
			return err
		}
		entry.MarkSynced(docID)
	} else {
		if err := g.UpdateDoc(entry.GoogleDocID, content); err != nil {
			entry.MarkSyncError()
			return err
		}
		entry.Sync = SyncSynced
		entry.UpdatedAt = time.Now()
	}

	return nil
}

// DocURL returns the URL to view/edit a Google Doc.
func DocURL(docID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID)
}

// Status is the current Google Docs connection status.
type Status struct {
	Connected bool   `json:"connected"`
	AuthURL   string `json:"auth_url,omitempty"`
}

// GetStatus returns the current Google Docs connection status.
func (g *GoogleDocsClient) GetStatus() Status {
	status := Status{
		Connected: g.IsAuthenticated(),
	}

	if !status.Connected {
		status.AuthURL = g.AuthURL()
	}

	return status
}

// initService initializes the Google Docs service with the current token.
func (g *GoogleDocsClient) initService() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token == nil {
		return fmt.Errorf("no token available")
	}

	ctx := context.Background()
	client := g.config.Client(ctx, g.token)

	service, err := docs.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("failed to create docs service: %w", err)
	}

	g.docsService = service
	return nil
}

// loadToken loads the OAuth token from disk.
func (g *GoogleDocsClient) loadToken() error {
	data, err := os.ReadFile(g.tokenPath)
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}

	g.mu.Lock()
	g.token = &token
	g.mu.Unlock()

	return nil
}

// saveToken saves the OAuth token to disk.
func (g *GoogleDocsClient) saveToken() error {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()

	if token == nil {
		return fmt.Errorf("no token to save")
	}

	dir := filepath.Dir(g.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(g.tokenPath, data, 0600)
}

// formatEntryForDoc formats a journal entry for a Google Doc.
func formatEntryForDoc(entry *Entry) string {
	var content string

	content += fmt.Sprintf("%s\n\n", entry.Title())

	if entry.Kind == KindNavigation {
		content += fmt.Sprintf("Destination: %s\n", entry.Destination)
		if entry.Position != nil {
			content += fmt.Sprintf("Last fix: %.5f, %.5f\n", entry.Position.Latitude, entry.Position.Longitude)
		}
		content += "\n"
	}

	content += "Transcript\n"
	content += fmt.Sprintf("%s\n", entry.Transcript)

	content += "\n---\n"
	content += fmt.Sprintf("Created: %s\n", entry.CreatedAt.Format("January 2, 2006"))
	content += fmt.Sprintf("Last Updated: %s\n", entry.UpdatedAt.Format("January 2, 2006 3:04 PM"))

	return content
}
