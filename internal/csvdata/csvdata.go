package csvdata

// Package csvdata loads workload users from a CSV file.
// Expected header: username,password[,expected_ok]

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrMissingHeader is returned when username or password columns are absent.
	ErrMissingHeader = errors.New("csv must have username,password headers")
	// ErrNoUsers is returned by Load when no usable row remains.
	ErrNoUsers = errors.New("no users found")
)

// User represents one username/password credential pair.
type User struct {
	Username string
	Password string
	// ExpectedOK reflects optional CSV column `expected_ok`.
	// When the column exists, only rows with true are included by Load.
	ExpectedOK bool
}

// Users holds all parsed users.
type Users struct {
	All []User
}

// Len returns the number of users.
func (u *Users) Len() int {
	if u == nil {
		return 0
	}

	return len(u.All)
}

type columns map[string]int

func headerColumns(h []string) columns {
	cols := make(columns, len(h))
	for i, name := range h {
		col := strings.TrimSpace(strings.ToLower(name))
		if _, dup := cols[col]; !dup {
			cols[col] = i
		}
	}

	return cols
}

// field returns the named column of rec and whether the row carries it.
func (c columns) field(rec []string, name string) (string, bool) {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return "", false
	}

	return rec[i], true
}

// Load reads a CSV file and returns all users. Additional columns are ignored.
func Load(path string) (*Users, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	users, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return users, nil
}

// Read parses users from r.
func Read(r io.Reader) (*Users, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := headerColumns(h)
	if _, ok := cols["username"]; !ok {
		return nil, ErrMissingHeader
	}

	if _, ok := cols["password"]; !ok {
		return nil, ErrMissingHeader
	}

	_, filterOK := cols["expected_ok"]

	var users []User
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		name, ok1 := cols.field(rec, "username")
		pass, ok2 := cols.field(rec, "password")
		if !ok1 || !ok2 {
			continue
		}

		// Strip trailing CR/LF from the password to avoid line-ending artifacts.
		u := User{Username: strings.TrimSpace(name), Password: strings.TrimRight(pass, "\r\n")}

		if filterOK {
			val, _ := cols.field(rec, "expected_ok")
			if !strings.EqualFold(strings.TrimSpace(val), "true") {
				continue
			}

			u.ExpectedOK = true
		}

		users = append(users, u)
	}

	if len(users) == 0 {
		return nil, ErrNoUsers
	}

	return &Users{All: users}, nil
}
