package question

import (
	"math/rand/v2"
	"strings"
)

// Bucket is a difficulty band.
type Bucket string

const (
	Easy   Bucket = "easy"
	Medium Bucket = "medium"
	Hard   Bucket = "hard"
	Random Bucket = "random"
)

// AnyType matches every question type.
const AnyType = "*"

// ParseBucket accepts easy, medium, hard, random or "" (random).
func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(strings.ToLower(strings.TrimSpace(s))) {
	case Easy:
		return Easy, true
	case Medium:
		return Medium, true
	case Hard:
		return Hard, true
	case Random, "":
		return Random, true
	}
	return "", false
}

// Contains reports whether difficulty d falls in the bucket.
func (b Bucket) Contains(d int) bool {
	switch b {
	case Easy:
		return d <= 4
	case Medium:
		return d >= 5 && d <= 7
	case Hard:
		return d >= 8
	default:
		return true
	}
}

type Selector struct {
	bank *Bank
	intn func(n int) int
}

func NewSelector(bank *Bank) *Selector {
	return &Selector{bank: bank, intn: rand.IntN}
}

// Fetch looks a question up by id with no fallback.
func (s *Selector) Fetch(id string) (*Question, bool) {
	q := s.bank.Fetch(id)
	return q, q != nil
}

// Generate picks a question of qtype from set setID in the given bucket.
// Constraints relax in order: the bucket is dropped first, then set and type.
// It reports false only when the bank is empty.
func (s *Selector) Generate(qtype, setID string, bucket Bucket) (View, bool) {
	pool := s.filter(func(q *Question) bool {
		return q.SetID() == setID && typeMatches(q, qtype) && bucket.Contains(q.Difficulty)
	})
	if len(pool) == 0 {
		pool = s.filter(func(q *Question) bool {
			return q.SetID() == setID && typeMatches(q, qtype)
		})
	}
	if len(pool) == 0 {
		pool = s.bank.All()
	}
	if len(pool) == 0 {
		return View{}, false
	}
	return pool[s.intn(len(pool))].View(), true
}

func (s *Selector) filter(keep func(*Question) bool) []*Question {
	var out []*Question
	for _, q := range s.bank.All() {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

func typeMatches(q *Question, qtype string) bool {
	return qtype == AnyType || q.Type == qtype
}
