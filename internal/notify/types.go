package notify

// Customer identifies the prospective buyer on an inquiry.
type Customer struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Telegram string `json:"telegram,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// Inquiry is a purchase request submitted by the storefront.
type Inquiry struct {
	WorkTitle      string   `json:"workTitle"`
	ArtistUsername string   `json:"artistUsername"`
	Price          *float64 `json:"price,omitempty"`
	Customer       Customer `json:"customer"`
}

// Status is the outcome class of a dispatch.
type Status string

const (
	StatusDelivered    Status = "delivered"
	StatusUnknown      Status = "artist_unknown"
	StatusUnregistered Status = "artist_unregistered"
	StatusFailed       Status = "delivery_failed"
)

// Detail refines StatusFailed.
type Detail string

const (
	DetailNone Detail = ""
	// DetailPermanent: the recipient is gone for good; the registry binding
	// was invalidated.
	DetailPermanent Detail = "permanent"
	// DetailTransient: the recipient may still be reachable later; the
	// registry was left untouched.
	DetailTransient Detail = "transient"
)

// Result is the terminal outcome of a single dispatch. Exactly one send
// attempt is ever made per inquiry.
type Result struct {
	Status  Status
	Detail  Detail
	Message string
}

// Delivered reports overall success.
func (r Result) Delivered() bool { return r.Status == StatusDelivered }

// ArtistFound reports whether the identity exists in the roster, regardless
// of whether delivery happened.
func (r Result) ArtistFound() bool { return r.Status != StatusUnknown }
