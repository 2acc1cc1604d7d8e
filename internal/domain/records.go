package domain

import "github.com/shopspring/decimal"

// The ten workflow-managed record types. Domain fields are validated through
// the descriptor registry; the embedded Meta is engine-owned and request
// payloads must not set it.

// Employee is a factory or office staff record.
type Employee struct {
	Meta
	EmployeeCode string `json:"employeeId" validate:"required"`
	FullName     string `json:"fullName" validate:"required"`
	Department   string `json:"department" validate:"required"`
	Designation  string `json:"designation"`
	JoinedOn     string `json:"joinedOn"`
}

func (e *Employee) Type() EntityType { return TypeEmployee }
func (e *Employee) Workflow() *Meta  { return &e.Meta }

// Project is a production or expansion project.
type Project struct {
	Meta
	Name      string          `json:"name" validate:"required"`
	Client    string          `json:"client"`
	Phase     string          `json:"status" validate:"omitempty,oneof=Planned InProgress Completed"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Value     decimal.Decimal `json:"value"`
}

func (p *Project) Type() EntityType { return TypeProject }
func (p *Project) Workflow() *Meta  { return &p.Meta }

// Export is a shipped garment order.
type Export struct {
	Meta
	OrderRef    string          `json:"orderRef" validate:"required"`
	Destination string          `json:"destination" validate:"required"`
	Product     string          `json:"product"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Value       decimal.Decimal `json:"value"`
	ShippedOn   string          `json:"shippedOn"`
}

func (e *Export) Type() EntityType { return TypeExport }
func (e *Export) Workflow() *Meta  { return &e.Meta }

// RawMaterial is a procured input (fabric, thread, dye).
type RawMaterial struct {
	Meta
	Name     string          `json:"name" validate:"required"`
	Supplier string          `json:"supplier"`
	Quantity int             `json:"quantity" validate:"gte=0"`
	Unit     string          `json:"unit"`
	Cost     decimal.Decimal `json:"cost"`
}

func (r *RawMaterial) Type() EntityType { return TypeRawMaterial }
func (r *RawMaterial) Workflow() *Meta  { return &r.Meta }

// Workforce is a production-line headcount record.
type Workforce struct {
	Meta
	Section    string `json:"section" validate:"required"`
	Headcount  int    `json:"headcount" validate:"gte=0"`
	Shift      string `json:"shift"`
	Supervisor string `json:"supervisor"`
}

func (w *Workforce) Type() EntityType { return TypeWorkforce }
func (w *Workforce) Workflow() *Meta  { return &w.Meta }

// Buyer is an international customer account.
type Buyer struct {
	Meta
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required"`
	Country       string `json:"country"`
	ContactPerson string `json:"contactPerson"`
}

func (b *Buyer) Type() EntityType { return TypeBuyer }
func (b *Buyer) Workflow() *Meta  { return &b.Meta }

// Financial is a monthly report. Revenue and profit are stored as string
// ranges ("50000-60000"); the reporting layer derives midpoints from them.
type Financial struct {
	Meta
	Period       string `json:"period" validate:"required"`
	RevenueRange string `json:"revenueRange" validate:"required"`
	ProfitRange  string `json:"profitRange" validate:"required"`
	Notes        string `json:"notes"`
}

func (f *Financial) Type() EntityType { return TypeFinancial }
func (f *Financial) Workflow() *Meta  { return &f.Meta }

// Media is a gallery item for the public site.
type Media struct {
	Meta
	Title   string `json:"title" validate:"required"`
	Kind    string `json:"kind" validate:"omitempty,oneof=photo video"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

func (m *Media) Type() EntityType { return TypeMedia }
func (m *Media) Workflow() *Meta  { return &m.Meta }

// Update is a news/announcement post.
type Update struct {
	Meta
	Title       string `json:"title" validate:"required"`
	Body        string `json:"body"`
	PublishedOn string `json:"publishedOn"`
}

func (u *Update) Type() EntityType { return TypeUpdate }
func (u *Update) Workflow() *Meta  { return &u.Meta }

// Company is the corporate profile (history, certifications, address).
type Company struct {
	Meta
	Name         string `json:"name" validate:"required"`
	Registration string `json:"registration" validate:"required"`
	Address      string `json:"address"`
	FoundedYear  int    `json:"foundedYear"`
}

func (c *Company) Type() EntityType { return TypeCompany }
func (c *Company) Workflow() *Meta  { return &c.Meta }
