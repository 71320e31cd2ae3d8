package database

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultBlockedTermsURL is the word list used when no other source is configured.
const DefaultBlockedTermsURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// SeedBlockedTerms downloads the moderation list from url into blocked_terms
// unless the table is already populated.
func (db *DB) SeedBlockedTerms(url string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM blocked_terms").Scan(&count); err != nil {
		return fmt.Errorf("failed to check blocked terms count: %w", err)
	}
	if count > 0 {
		log.Printf("Blocked terms already populated with %d entries", count)
		return nil
	}

	if url == "" {
		url = DefaultBlockedTermsURL
	}

	log.Println("Downloading blocked terms list...")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download blocked terms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from blocked terms URL: %d", resp.StatusCode)
	}

	added, err := db.LoadBlockedTerms(resp.Body)
	if err != nil {
		return err
	}

	log.Printf("Blocked terms populated with %d entries", added)
	return nil
}

// LoadBlockedTerms inserts one term per line from r, skipping blanks and duplicates.
func (db *DB) LoadBlockedTerms(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	added := 0

	err := db.WithTx(func(tx *Tx) error {
		insertQuery := db.Dialect.InsertIgnore("blocked_terms", "term")
		for scanner.Scan() {
			term := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if term == "" {
				continue
			}
			result, err := tx.Exec(insertQuery, term)
			if err != nil {
				return fmt.Errorf("failed to insert blocked term: %w", err)
			}
			if n, _ := result.RowsAffected(); n > 0 {
				added++
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("error reading blocked terms: %w", err)
		}
		return nil
	})
	return added, err
}

// FindBlockedTerms returns the words of text that appear in the moderation
// list, matching whole words case-insensitively.
func (db *DB) FindBlockedTerms(text string) ([]string, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'' || r == '-')
	})
	if len(words) == 0 {
		return nil, nil
	}

	var found []string
	seen := make(map[string]bool)
	for _, word := range words {
		if seen[word] {
			continue
		}
		seen[word] = true

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM blocked_terms WHERE term = ?", word).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to check blocked term: %w", err)
		}
		if count > 0 {
			found = append(found, word)
		}
	}

	// Multi-word entries are matched against the whole phrase.
	phrase := strings.Join(words, " ")
	if len(words) > 1 {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM blocked_terms WHERE term = ?", phrase).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to check blocked term: %w", err)
		}
		if count > 0 {
			found = append(found, phrase)
		}
	}

	if len(found) > 0 {
		log.Printf("Blocked terms detected: %v", found)
	}
	return found, nil
}
