package engagement

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceKind is the acquisition path an engagement came from.
type SourceKind string

const (
	SourceApplication SourceKind = "application"
	SourceQuote       SourceKind = "quote"
	SourcePackage     SourceKind = "package"
)

// Source is the tagged union over acquisition paths. The variants are the
// only implementations.
type Source interface {
	SourceKind() SourceKind
}

// ApplicationSource is an engagement won on the open board.
type ApplicationSource struct {
	ApplicationID uint    `json:"application_id"`
	ProjectID     uint    `json:"project_id"`
	QuotedPrice   float64 `json:"quoted_price"`
	TimelineDays  int     `json:"delivery_timeline"`
}

// QuoteSource is an engagement negotiated through a custom quote.
type QuoteSource struct {
	RequestID    uint `json:"request_id"`
	QuoteID      uint `json:"quote_id"`
	ProjectID    uint `json:"project_id"`
	DeliveryDays int  `json:"delivery_days"`
}

// PackageSource is an engagement bought as a fixed-price package.
type PackageSource struct {
	PackageID uint   `json:"package_id"`
	OrderID   uint   `json:"order_id"`
	Tier      string `json:"tier"`
}

func (ApplicationSource) SourceKind() SourceKind { return SourceApplication }
func (QuoteSource) SourceKind() SourceKind       { return SourceQuote }
func (PackageSource) SourceKind() SourceKind     { return SourcePackage }

// TargetKind is the record that deliveries are submitted against.
type TargetKind string

const (
	TargetProject      TargetKind = "project"
	TargetPackageOrder TargetKind = "package_order"
)

// Kind maps the target onto its entity kind.
func (k TargetKind) Kind() Kind {
	if k == TargetPackageOrder {
		return KindPackageOrder
	}
	return KindProject
}

// Ref points at the fulfillment target of an engagement.
type Ref struct {
	Kind TargetKind `json:"kind"`
	ID   uint       `json:"id"`
}

func ProjectRef(id uint) Ref      { return Ref{Kind: TargetProject, ID: id} }
func PackageOrderRef(id uint) Ref { return Ref{Kind: TargetPackageOrder, ID: id} }

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// ParseRef accepts the kind and id segments used in URLs.
func ParseRef(kind, id string) (Ref, error) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return Ref{}, InvalidInput("invalid engagement id")
	}
	switch TargetKind(strings.ReplaceAll(kind, "-", "_")) {
	case TargetProject:
		return ProjectRef(uint(n)), nil
	case TargetPackageOrder:
		return PackageOrderRef(uint(n)), nil
	}
	return Ref{}, InvalidInput("unknown engagement kind " + kind)
}

// Engagement is the normalized active-engagement view shared by all
// acquisition paths.
type Engagement struct {
	ID             string     `json:"id"`
	SourceKind     SourceKind `json:"source_kind"`
	Source         Source     `json:"source"`
	Target         Ref        `json:"target"`
	Title          string     `json:"title"`
	ClientID       uint       `json:"client_id"`
	ArtistID       uint       `json:"artist_id"`
	CounterpartyID uint       `json:"counterparty_id"`
	Price          float64    `json:"price"`
	Currency       string     `json:"currency"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Status         string     `json:"status"`
	RevisionRounds int        `json:"revision_rounds"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewEngagement fills the identity fields that derive from the source.
func NewEngagement(src Source, target Ref, clientID, artistID uint, viewer Role) Engagement {
	e := Engagement{
		SourceKind: src.SourceKind(),
		Source:     src,
		Target:     target,
		ClientID:   clientID,
		ArtistID:   artistID,
	}
	switch s := src.(type) {
	case ApplicationSource:
		e.ID = fmt.Sprintf("%s:%d", SourceApplication, s.ApplicationID)
	case QuoteSource:
		e.ID = fmt.Sprintf("%s:%d", SourceQuote, s.RequestID)
	case PackageSource:
		e.ID = fmt.Sprintf("%s:%d", SourcePackage, s.OrderID)
	}
	if viewer == RoleArtist {
		e.CounterpartyID = clientID
	} else {
		e.CounterpartyID = artistID
	}
	return e
}
