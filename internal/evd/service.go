package evd

// IntakeService is the orchestration layer coordinating resolver, validator,
// checksum engine, canonical store and index to move each submitted file to
// exactly one terminal state: LoggedComplete or Quarantined.
type IntakeService struct {
	index     Index
	store     Store
	fsmgr     FilesystemManager
	resolver  Resolver
	validator Validator
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	locks        *caseLocks
	defaultActor string
	workers      int
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	// DefaultActor is recorded on custody events when the caller supplies
	// no actor identity.
	DefaultActor string

	// Workers bounds concurrent pipelines during batch intake.
	Workers int
}

const defaultWorkers = 4

// NewIntakeService creates an IntakeService with the provided dependencies.
func NewIntakeService(index Index, store Store, fsmgr FilesystemManager, resolver Resolver, validator Validator, logger Logger, clock Clock, idgen IDGenerator, opts Options) *IntakeService {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	actor := opts.DefaultActor
	if actor == "" {
		actor = "system"
	}
	return &IntakeService{
		index:        index,
		store:        store,
		fsmgr:        fsmgr,
		resolver:     resolver,
		validator:    validator,
		logger:       logger,
		clock:        clock,
		idgen:        idgen,
		locks:        newCaseLocks(),
		defaultActor: actor,
		workers:      workers,
	}
}

func (s *IntakeService) actorOr(actor string) string {
	if actor == "" {
		return s.defaultActor
	}
	return actor
}
