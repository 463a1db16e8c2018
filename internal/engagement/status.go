package engagement

// Kind identifies an entity type governed by the engine.
type Kind string

const (
	KindProfile        Kind = "profile"
	KindProject        Kind = "project"
	KindApplication    Kind = "application"
	KindQuoteRequest   Kind = "quote_request"
	KindServicePackage Kind = "service_package"
	KindPackageOrder   Kind = "package_order"
	KindDelivery       Kind = "delivery"
)

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectDelivered  ProjectStatus = "delivered"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectClosed     ProjectStatus = "closed"
)

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

type QuoteRequestStatus string

const (
	QuotePending  QuoteRequestStatus = "pending"
	QuoteQuoted   QuoteRequestStatus = "quoted"
	QuoteAccepted QuoteRequestStatus = "accepted"
	QuoteRejected QuoteRequestStatus = "rejected"
	QuoteExpired  QuoteRequestStatus = "expired"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
)

type DeliveryStatus string

const (
	DeliveryPendingReview     DeliveryStatus = "pending_review"
	DeliveryAccepted          DeliveryStatus = "accepted"
	DeliveryRevisionRequested DeliveryStatus = "revision_requested"
)

// Project: owner is the client, counterparty the assigned artist.
// open → in_progress is taken by the client when accepting an application.
var ProjectMachine = newMachine(KindProject,
	[]ProjectStatus{ProjectOpen, ProjectInProgress, ProjectDelivered, ProjectCompleted, ProjectClosed},
	Transition[ProjectStatus]{From: ProjectOpen, To: ProjectInProgress, By: PartyOwner},
	Transition[ProjectStatus]{From: ProjectOpen, To: ProjectClosed, By: PartyOwner},
	Transition[ProjectStatus]{From: ProjectInProgress, To: ProjectDelivered, By: PartyOwner},
	Transition[ProjectStatus]{From: ProjectDelivered, To: ProjectCompleted, By: PartyOwner},
)

// Application: owner is the artist, counterparty the project's client.
var ApplicationMachine = newMachine(KindApplication,
	[]ApplicationStatus{ApplicationPending, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn},
	Transition[ApplicationStatus]{From: ApplicationPending, To: ApplicationAccepted, By: PartyCounterparty},
	Transition[ApplicationStatus]{From: ApplicationPending, To: ApplicationRejected, By: PartyCounterparty},
	Transition[ApplicationStatus]{From: ApplicationPending, To: ApplicationWithdrawn, By: PartyOwner},
)

// QuoteRequest: owner is the client, counterparty the addressed artist.
// quoted → quoted is a quote resubmission.
var QuoteRequestMachine = newMachine(KindQuoteRequest,
	[]QuoteRequestStatus{QuotePending, QuoteQuoted, QuoteAccepted, QuoteRejected, QuoteExpired},
	Transition[QuoteRequestStatus]{From: QuotePending, To: QuoteQuoted, By: PartyCounterparty},
	Transition[QuoteRequestStatus]{From: QuoteQuoted, To: QuoteQuoted, By: PartyCounterparty},
	Transition[QuoteRequestStatus]{From: QuotePending, To: QuoteRejected, By: PartyCounterparty},
	Transition[QuoteRequestStatus]{From: QuoteQuoted, To: QuoteAccepted, By: PartyOwner},
	Transition[QuoteRequestStatus]{From: QuoteQuoted, To: QuoteRejected, By: PartyOwner},
	Transition[QuoteRequestStatus]{From: QuotePending, To: QuoteExpired, By: PartySystem},
	Transition[QuoteRequestStatus]{From: QuoteQuoted, To: QuoteExpired, By: PartySystem},
)

// PackageOrder: owner is the buying client, counterparty the package's artist.
var OrderMachine = newMachine(KindPackageOrder,
	[]OrderStatus{OrderPending, OrderInProgress, OrderDelivered, OrderCompleted},
	Transition[OrderStatus]{From: OrderPending, To: OrderInProgress, By: PartyCounterparty},
	Transition[OrderStatus]{From: OrderInProgress, To: OrderDelivered, By: PartyOwner},
	Transition[OrderStatus]{From: OrderDelivered, To: OrderCompleted, By: PartyOwner},
)

// Delivery: owner is the submitting artist, counterparty the client.
var DeliveryMachine = newMachine(KindDelivery,
	[]DeliveryStatus{DeliveryPendingReview, DeliveryAccepted, DeliveryRevisionRequested},
	Transition[DeliveryStatus]{From: DeliveryPendingReview, To: DeliveryAccepted, By: PartyCounterparty},
	Transition[DeliveryStatus]{From: DeliveryPendingReview, To: DeliveryRevisionRequested, By: PartyCounterparty},
)
