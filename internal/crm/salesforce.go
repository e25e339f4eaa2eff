package crm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meeting-agent/internal/model"
	sfpkg "github.com/sells-group/meeting-agent/pkg/salesforce"
)

// Salesforce serves the read-query contract directly from a Salesforce org
// via SOQL. Accounts, Contacts, and Opportunities map onto the three entity
// types.
type Salesforce struct {
	client sfpkg.Client
}

// NewSalesforce wraps a Salesforce client as a Store.
func NewSalesforce(client sfpkg.Client) *Salesforce {
	return &Salesforce{client: client}
}

type sfAccountRow struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	Website  string `json:"Website"`
	Industry string `json:"Industry"`
}

type sfContactRow struct {
	ID        string `json:"Id"`
	Name      string `json:"Name"`
	Email     string `json:"Email"`
	Title     string `json:"Title"`
	AccountID string `json:"AccountId"`
	Account   struct {
		Name string `json:"Name"`
	} `json:"Account"`
}

type sfOpportunityRow struct {
	ID        string  `json:"Id"`
	Name      string  `json:"Name"`
	StageName string  `json:"StageName"`
	Amount    float64 `json:"Amount"`
	AccountID string  `json:"AccountId"`
	Account   struct {
		Name string `json:"Name"`
	} `json:"Account"`
}

// FindCandidates recalls records by token containment on Name via SOQL LIKE.
func (s *Salesforce) FindCandidates(ctx context.Context, t model.EntityType, query string, hints Hints) ([]model.EntityRecord, error) {
	tokens := foldTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	where := soqlNameFilter(tokens)

	switch t {
	case model.EntityCompany:
		var rows []sfAccountRow
		soql := "SELECT Id, Name, Website, Industry FROM Account WHERE " + where + " ORDER BY Id LIMIT 50"
		if err := s.client.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sf store: query accounts")
		}
		out := make([]model.EntityRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, accountRecord(r))
		}
		return out, nil

	case model.EntityContact:
		var rows []sfContactRow
		soql := "SELECT Id, Name, Email, Title, AccountId, Account.Name FROM Contact WHERE " + where + " ORDER BY Id LIMIT 50"
		if err := s.client.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sf store: query contacts")
		}
		out := make([]model.EntityRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, contactRecord(r))
		}
		return out, nil

	case model.EntityOpportunity:
		var rows []sfOpportunityRow
		soql := "SELECT Id, Name, StageName, Amount, AccountId, Account.Name FROM Opportunity WHERE " + where + " ORDER BY Id LIMIT 50"
		if err := s.client.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sf store: query opportunities")
		}
		out := make([]model.EntityRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, opportunityRecord(r))
		}
		return out, nil
	}
	return nil, eris.Errorf("sf store: unknown entity type %q", t)
}

// Get fetches a single record by Salesforce ID.
func (s *Salesforce) Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error) {
	idLit := soqlQuote(id)
	switch t {
	case model.EntityCompany:
		var rows []sfAccountRow
		soql := "SELECT Id, Name, Website, Industry FROM Account WHERE Id = " + idLit
		if err := s.client.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sf store: get account")
		}
		if len(rows) == 0 {
			return nil, ErrNotFound
		}
		rec := accountRecord(rows[0])
		return &rec, nil

	case model.EntityContact:
		var rows []sfContactRow
		soql := "SELECT Id, Name, Email, Title, AccountId, Account.Name FROM Contact WHERE Id = " + idLit
		if err := s.client.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sf store: get contact")
		}
		if len(rows) == 0 {
			return nil, ErrNotFound
		}
		rec := contactRecord(rows[0])
		return &rec, nil

	case model.EntityOpportunity:
		var rows []sfOpportunityRow
		soql := "SELECT Id, Name, StageName, Amount, AccountId, Account.Name FROM Opportunity WHERE Id = " + idLit
		if err := s.client.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sf store: get opportunity")
		}
		if len(rows) == 0 {
			return nil, ErrNotFound
		}
		rec := opportunityRecord(rows[0])
		return &rec, nil
	}
	return nil, eris.Errorf("sf store: unknown entity type %q", t)
}

func accountRecord(r sfAccountRow) model.EntityRecord {
	attrs := map[string]string{}
	if r.Website != "" {
		attrs[model.AttrDomain] = r.Website
	}
	if r.Industry != "" {
		attrs[model.AttrIndustry] = r.Industry
	}
	return model.EntityRecord{ID: r.ID, Type: model.EntityCompany, Name: r.Name, Attributes: attrs}
}

func contactRecord(r sfContactRow) model.EntityRecord {
	attrs := map[string]string{}
	if r.Email != "" {
		attrs[model.AttrEmail] = r.Email
	}
	if r.Title != "" {
		attrs[model.AttrRole] = r.Title
	}
	if r.AccountID != "" {
		attrs[model.AttrCompanyID] = r.AccountID
	}
	if r.Account.Name != "" {
		attrs[model.AttrCompanyName] = r.Account.Name
	}
	return model.EntityRecord{ID: r.ID, Type: model.EntityContact, Name: r.Name, Attributes: attrs}
}

func opportunityRecord(r sfOpportunityRow) model.EntityRecord {
	attrs := map[string]string{}
	if r.StageName != "" {
		attrs[model.AttrStage] = r.StageName
	}
	if r.Amount > 0 {
		attrs[model.AttrAmount] = strconv.FormatFloat(r.Amount, 'f', -1, 64)
	}
	if r.AccountID != "" {
		attrs[model.AttrCompanyID] = r.AccountID
	}
	if r.Account.Name != "" {
		attrs[model.AttrCompanyName] = r.Account.Name
	}
	return model.EntityRecord{ID: r.ID, Type: model.EntityOpportunity, Name: r.Name, Attributes: attrs}
}

// soqlNameFilter builds a LIKE clause per token, OR-joined.
func soqlNameFilter(tokens []string) string {
	clauses := make([]string, len(tokens))
	for i, tok := range tokens {
		clauses[i] = "Name LIKE " + soqlQuote("%"+tok+"%")
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// soqlQuote escapes and quotes a SOQL string literal.
func soqlQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return fmt.Sprintf("'%s'", s)
}
