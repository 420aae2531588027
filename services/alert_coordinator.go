package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AlertCoordinatorConfig struct {
	// CallTimeout bounds each external call made by the coordination
	// workflow (store lookups, sends, directory queries).
	CallTimeout time.Duration
	// SendAttempts is how many times a single recipient send is tried.
	SendAttempts int
	// PersistAttempts is how many times the final coordination write is
	// tried before the result is given up on.
	PersistAttempts   int
	RetryDelay        time.Duration
	RecentAlertWindow time.Duration
	HistoryWindow     time.Duration
	ResponderRoles    []models.ResponderRole
}

func (c *AlertCoordinatorConfig) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.SendAttempts <= 0 {
		c.SendAttempts = 1
	}
	if c.PersistAttempts <= 0 {
		c.PersistAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.RecentAlertWindow <= 0 {
		c.RecentAlertWindow = 24 * time.Hour
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 6 * time.Hour
	}
	if len(c.ResponderRoles) == 0 {
		c.ResponderRoles = []models.ResponderRole{models.ResponderPolice, models.ResponderAmbulance}
	}
}

// AlertCoordinator drives alerts through Active -> Resolved | Cancelled |
// FalseAlarm and runs the SOS notification fan-out.
type AlertCoordinator struct {
	alerts     AlertStore
	users      UserStore
	locations  LocationStore
	sink       NotificationSink
	responders ResponderDirectory
	scorer     *SafetyScorer
	queue      TaskQueue
	events     EventPublisher
	validator  *utils.ValidationService
	cfg        AlertCoordinatorConfig
	locks      *keyedMutex
	now        func() time.Time
}

func NewAlertCoordinator(
	alerts AlertStore,
	users UserStore,
	locations LocationStore,
	sink NotificationSink,
	responders ResponderDirectory,
	scorer *SafetyScorer,
	queue TaskQueue,
	events EventPublisher,
	cfg AlertCoordinatorConfig,
) *AlertCoordinator {
	cfg.applyDefaults()
	if events == nil {
		events = LogEventPublisher{}
	}
	return &AlertCoordinator{
		alerts:     alerts,
		users:      users,
		locations:  locations,
		sink:       sink,
		responders: responders,
		scorer:     scorer,
		queue:      queue,
		events:     events,
		validator:  utils.NewValidationService(),
		cfg:        cfg,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// =================== SOS FUNCTIONALITY ===================

// CreateSOS persists an Active/Critical SOS alert and hands the
// notification workflow to the task queue. It returns as soon as the alert
// is stored; workflow failures never reach the caller.
func (ac *AlertCoordinator) CreateSOS(ctx context.Context, userID string, req models.SOSRequest) (*models.Alert, error) {
	if err := ac.validator.Validate(req); err != nil {
		return nil, err
	}

	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	coordinate := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if !utils.IsValidCoordinate(coordinate) {
		return nil, utils.NewValidationError("Coordinate out of range")
	}

	now := ac.now()
	alert := &models.Alert{
		UserID:     userObjectID,
		Type:       models.AlertTypeSOS,
		Status:     models.AlertStatusActive,
		Severity:   models.SeverityCritical,
		Coordinate: coordinate,
		Point:      models.NewGeoPoint(coordinate),
		Accuracy:   req.Accuracy,
		Message:    req.Message,
		Media:      nonNilStrings(req.Media),
		Responders: []models.ResponderAssignment{},
		Timestamp:  now,
		Events: []models.AlertEvent{{
			Type:        models.AlertEventCreated,
			Description: "SOS alert triggered",
			Actor:       userID,
			Timestamp:   now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if match := ac.scorer.zones.Classify(coordinate); match != nil {
		alert.ZoneID = match.ZoneID
	}

	saved, err := ac.alerts.Save(ctx, alert)
	if err != nil {
		return nil, utils.NewDatabaseError("create alert", err)
	}

	logrus.WithFields(logrus.Fields{
		"alertId": saved.ID.Hex(),
		"userId":  userID,
	}).Warn("SOS alert created")

	ac.publish(saved, EventAlertCreated, nil)
	ac.dispatchCoordination(*saved)

	return saved, nil
}

// CreateAlert stores a non-SOS alert. These do not trigger contact fan-out.
func (ac *AlertCoordinator) CreateAlert(ctx context.Context, userID string, req models.CreateAlertRequest) (*models.Alert, error) {
	if err := ac.validator.Validate(req); err != nil {
		return nil, err
	}

	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	coordinate := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	now := ac.now()
	alert := &models.Alert{
		UserID:     userObjectID,
		Type:       req.Type,
		Status:     models.AlertStatusActive,
		Severity:   req.Severity,
		Coordinate: coordinate,
		Point:      models.NewGeoPoint(coordinate),
		Message:    req.Message,
		Media:      nonNilStrings(req.Media),
		Responders: []models.ResponderAssignment{},
		Timestamp:  now,
		Events: []models.AlertEvent{{
			Type:        models.AlertEventCreated,
			Description: fmt.Sprintf("%s alert raised", req.Type),
			Actor:       userID,
			Timestamp:   now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if match := ac.scorer.zones.Classify(coordinate); match != nil {
		alert.ZoneID = match.ZoneID
	}

	saved, err := ac.alerts.Save(ctx, alert)
	if err != nil {
		return nil, utils.NewDatabaseError("create alert", err)
	}

	ac.publish(saved, EventAlertCreated, nil)
	return saved, nil
}

func (ac *AlertCoordinator) dispatchCoordination(alert models.Alert) {
	job := func(ctx context.Context) error {
		return ac.Coordinate(ctx, alert)
	}

	if ac.queue != nil {
		err := ac.queue.Enqueue("sos-coordination:"+alert.ID.Hex(), job)
		if err == nil {
			return
		}
		logrus.WithError(err).WithField("alertId", alert.ID.Hex()).Warn("Coordination queue rejected job, running detached")
	}

	go func() {
		if err := job(context.Background()); err != nil {
			logrus.WithError(err).WithField("alertId", alert.ID.Hex()).Error("SOS coordination failed")
		}
	}()
}

// coordinationResult collects what the workflow managed to do.
type coordinationResult struct {
	assessment *models.SafetyAssessment
	responders []models.ResponderAssignment
	// contactEvents and assignEvents are kept apart so a closed alert still
	// records who was reached without taking new responders.
	contactEvents []models.AlertEvent
	assignEvents  []models.AlertEvent
	notified      int
	failed        int
	pushed        bool
}

// reached reports whether any recipient actually got a message.
func (r *coordinationResult) reached() bool {
	return r.notified > 0 || r.pushed
}

// Coordinate runs the SOS workflow for alert. Every step is best-effort:
// failures are logged and the next step still runs. Nothing done by an
// earlier step is rolled back. Once a recipient has been reached Coordinate
// returns nil even if the final persist fails, so a queue retry never sends
// the same SOS twice.
func (ac *AlertCoordinator) Coordinate(ctx context.Context, alert models.Alert) error {
	log := logrus.WithFields(logrus.Fields{
		"alertId": alert.ID.Hex(),
		"userId":  alert.UserID.Hex(),
	})
	result := &coordinationResult{}

	// 1. safety context
	assessment := ac.assessAlert(ctx, alert, log)
	result.assessment = &assessment

	if ac.isClosed(ctx, alert.ID, log) {
		log.Info("Alert closed before coordination ran, skipping fan-out")
	} else {
		// 2. emergency contacts
		ac.notifyContacts(ctx, alert, assessment, result, log)

		// 3. responders
		ac.assignResponders(ctx, alert, result, log)

		// 4. confirmation push to the user
		err := ac.withTimeout(ctx, func(callCtx context.Context) error {
			return ac.sink.PushToUser(callCtx, alert.UserID.Hex(),
				"SOS Alert Activated",
				"Your emergency contacts and nearby responders are being notified.",
				map[string]string{
					"alertId":  alert.ID.Hex(),
					"type":     string(alert.Type),
					"priority": models.PriorityHigh,
				})
		})
		if err != nil {
			log.WithError(utils.NewDependencyFailure("push", err)).Error("Failed to push SOS confirmation")
		} else {
			result.pushed = true
		}
	}

	// 5. persist
	var updated *models.Alert
	err := ac.retry(ctx, ac.cfg.PersistAttempts, func(callCtx context.Context) error {
		var err error
		updated, err = ac.mergeCoordination(callCtx, alert.ID, result)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("contactsNotified", result.notified).Error("Failed to persist SOS coordination result")
		if result.reached() {
			return nil
		}
		return err
	}

	log.WithFields(logrus.Fields{
		"contactsNotified": result.notified,
		"contactsFailed":   result.failed,
		"responders":       len(result.responders),
		"score":            assessment.Score,
	}).Info("SOS coordination completed")

	ac.publish(updated, EventAlertCoordinated, map[string]any{
		"contactsNotified": result.notified,
		"contactsFailed":   result.failed,
		"responders":       len(result.responders),
		"safetyScore":      assessment.Score,
	})
	return nil
}

// isClosed re-reads the alert under its lock. A read failure counts as open
// so an SOS is never dropped because the store hiccupped.
func (ac *AlertCoordinator) isClosed(ctx context.Context, alertID primitive.ObjectID, log *logrus.Entry) bool {
	unlock := ac.locks.Lock(alertID.Hex())
	defer unlock()

	var status models.AlertStatus
	err := ac.withTimeout(ctx, func(callCtx context.Context) error {
		current, err := ac.alerts.Get(callCtx, alertID)
		if err != nil {
			return err
		}
		status = current.Status
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Could not re-read alert status, continuing coordination")
		return false
	}
	return status.IsTerminal()
}

func (ac *AlertCoordinator) assessAlert(ctx context.Context, alert models.Alert, log *logrus.Entry) models.SafetyAssessment {
	input := models.SafetyInput{
		Coordinate: alert.Coordinate,
		Timestamp:  alert.Timestamp,
	}

	err := ac.withTimeout(ctx, func(callCtx context.Context) error {
		count, err := ac.alerts.CountInRange(callCtx, alert.UserID, alert.Timestamp.Add(-ac.cfg.RecentAlertWindow), alert.Timestamp)
		if err != nil {
			return err
		}
		input.RecentAlertCount = int(count)
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Could not count recent alerts, assessing without them")
	}

	if ac.locations != nil {
		err = ac.withTimeout(ctx, func(callCtx context.Context) error {
			history, err := ac.locations.RecentSamples(callCtx, alert.UserID, alert.Timestamp.Add(-ac.cfg.HistoryWindow))
			if err != nil {
				return err
			}
			input.History = history
			return nil
		})
		if err != nil {
			log.WithError(err).Warn("Could not load location history, assessing without it")
		}
	}

	return ac.scorer.AssessSOS(input)
}

func (ac *AlertCoordinator) notifyContacts(ctx context.Context, alert models.Alert, assessment models.SafetyAssessment, result *coordinationResult, log *logrus.Entry) {
	var contacts []models.EmergencyContact
	err := ac.withTimeout(ctx, func(callCtx context.Context) error {
		var err error
		contacts, err = ac.users.GetEmergencyContacts(callCtx, alert.UserID)
		return err
	})
	if err != nil {
		log.WithError(utils.NewDependencyFailure("user store", err)).Error("Failed to load emergency contacts")
		return
	}
	if len(contacts) == 0 {
		log.Warn("User has no emergency contacts")
		return
	}

	name := "A traveler"
	_ = ac.withTimeout(ctx, func(callCtx context.Context) error {
		user, err := ac.users.GetUser(callCtx, alert.UserID)
		if err == nil && user != nil && user.FullName() != "" {
			name = user.FullName()
		}
		return err
	})

	subject := fmt.Sprintf("EMERGENCY: %s triggered an SOS alert", name)
	body := buildSOSMessage(name, alert, assessment)
	sms := fmt.Sprintf("SOS from %s at https://maps.google.com/?q=%.6f,%.6f", name, alert.Coordinate.Latitude, alert.Coordinate.Longitude)

	for _, contact := range contacts {
		contactLog := log.WithField("contact", contact.Name)

		if contact.Email != "" {
			address := contact.Email
			err := ac.attempt(ctx, func(callCtx context.Context) error {
				return ac.sink.SendEmail(callCtx, address, subject, body)
			})
			result.record(contact, "email", err, ac.now())
			if err != nil {
				contactLog.WithError(utils.NewDependencyFailure("email", err)).Error("Failed to email emergency contact")
			}
		}

		if contact.Phone != "" {
			phone := contact.Phone
			err := ac.attempt(ctx, func(callCtx context.Context) error {
				return ac.sink.SendSMS(callCtx, phone, sms)
			})
			result.record(contact, "sms", err, ac.now())
			if err != nil {
				contactLog.WithError(utils.NewDependencyFailure("sms", err)).Error("Failed to text emergency contact")
			}
		}
	}
}

func (r *coordinationResult) record(contact models.EmergencyContact, channel string, err error, at time.Time) {
	event := models.AlertEvent{
		Type:        models.AlertEventContactNotified,
		Description: fmt.Sprintf("%s notified by %s", contact.Name, channel),
		Timestamp:   at,
	}
	if err != nil {
		r.failed++
		event.Type = models.AlertEventContactFailed
		event.Description = fmt.Sprintf("%s could not be reached by %s", contact.Name, channel)
	} else {
		r.notified++
	}
	r.contactEvents = append(r.contactEvents, event)
}

func (ac *AlertCoordinator) assignResponders(ctx context.Context, alert models.Alert, result *coordinationResult, log *logrus.Entry) {
	if ac.responders == nil {
		return
	}

	var refs []models.ResponderRef
	err := ac.withTimeout(ctx, func(callCtx context.Context) error {
		var err error
		refs, err = ac.responders.Nearby(callCtx, alert.Coordinate, ac.cfg.ResponderRoles)
		return err
	})
	if err != nil {
		log.WithError(utils.NewDependencyFailure("responder directory", err)).Error("Failed to look up responders")
		return
	}

	now := ac.now()
	for _, ref := range refs {
		result.responders = append(result.responders, models.ResponderAssignment{
			ResponderID:    ref.ResponderID,
			Name:           ref.Name,
			Role:           ref.Role,
			DistanceMeters: ref.DistanceMeters,
		})
		result.assignEvents = append(result.assignEvents, models.AlertEvent{
			Type:        models.AlertEventResponderAssigned,
			Description: fmt.Sprintf("%s (%s) assigned", ref.Name, ref.Role),
			Timestamp:   now,
		})
	}
}

// mergeCoordination folds the workflow result into the current stored
// alert under the alert lock so a concurrent status change is kept. An alert
// that was closed meanwhile gets the assessment and contact history only.
func (ac *AlertCoordinator) mergeCoordination(ctx context.Context, alertID primitive.ObjectID, result *coordinationResult) (*models.Alert, error) {
	unlock := ac.locks.Lock(alertID.Hex())
	defer unlock()

	updated, err := ac.guardedUpdate(ctx, alertID, func(current *models.Alert) (bool, error) {
		current.Assessment = result.assessment
		current.Events = append(current.Events, result.contactEvents...)
		if !current.Status.IsTerminal() {
			current.Responders = mergeResponders(current.Responders, result.responders)
			current.Events = append(current.Events, result.assignEvents...)
		}
		current.UpdatedAt = ac.now()
		return true, nil
	})
	if err != nil {
		return nil, utils.NewDependencyFailure("alert store", err)
	}
	return updated, nil
}

func mergeResponders(existing, incoming []models.ResponderAssignment) []models.ResponderAssignment {
	seen := make(map[string]bool, len(existing))
	out := make([]models.ResponderAssignment, 0, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ResponderID] = true
		out = append(out, r)
	}
	for _, r := range incoming {
		if seen[r.ResponderID] {
			continue
		}
		seen[r.ResponderID] = true
		out = append(out, r)
	}
	return out
}

// =================== STATUS MANAGEMENT ===================

// UpdateStatus moves an active alert into a terminal state. Transitions on
// the same alert are serialized; the first one wins and later ones fail with
// InvalidTransition.
func (ac *AlertCoordinator) UpdateStatus(ctx context.Context, alertID string, newStatus models.AlertStatus, resolverID, notes string) (*models.Alert, error) {
	id, err := utils.ParseObjectID(alertID, "alert ID")
	if err != nil {
		return nil, err
	}
	if !newStatus.IsTerminal() {
		return nil, utils.NewValidationError(fmt.Sprintf("Unsupported target status %q", newStatus))
	}

	unlock := ac.locks.Lock(id.Hex())
	defer unlock()

	var previous models.AlertStatus
	alert, err := ac.guardedUpdate(ctx, id, func(alert *models.Alert) (bool, error) {
		previous = alert.Status
		if !previous.CanTransitionTo(newStatus) {
			return false, utils.NewInvalidTransitionError(string(previous), string(newStatus))
		}

		now := ac.now()
		alert.Status = newStatus
		alert.StatusNotes = notes
		alert.UpdatedAt = now
		if newStatus == models.AlertStatusResolved {
			alert.ResolvedAt = &now
			alert.ResolvedBy = resolverID
		}
		alert.Events = append(alert.Events, models.AlertEvent{
			Type:        models.AlertEventStatusChanged,
			Description: fmt.Sprintf("%s -> %s", previous, newStatus),
			Actor:       resolverID,
			Timestamp:   now,
		})
		return true, nil
	})
	if err != nil {
		if _, ok := utils.GetServiceError(err); ok {
			return nil, err
		}
		return nil, utils.NewDatabaseError("update alert status", err)
	}

	logrus.WithFields(logrus.Fields{
		"alertId": alertID,
		"from":    previous,
		"to":      newStatus,
		"by":      resolverID,
	}).Info("Alert status updated")

	ac.publish(alert, EventAlertStatusChanged, map[string]any{"from": previous, "by": resolverID})
	ac.notifyStatusChange(*alert)

	return alert, nil
}

func (ac *AlertCoordinator) notifyStatusChange(alert models.Alert) {
	job := func(ctx context.Context) error {
		return ac.withTimeout(ctx, func(callCtx context.Context) error {
			return ac.sink.PushToUser(callCtx, alert.UserID.Hex(),
				"Alert updated",
				fmt.Sprintf("Your %s alert is now %s.", alert.Type, strings.ReplaceAll(string(alert.Status), "_", " ")),
				map[string]string{"alertId": alert.ID.Hex(), "status": string(alert.Status)})
		})
	}
	if ac.queue != nil && ac.queue.Enqueue("alert-status:"+alert.ID.Hex(), job) == nil {
		return
	}
	go func() {
		if err := job(context.Background()); err != nil {
			logrus.WithError(err).WithField("alertId", alert.ID.Hex()).Warn("Failed to push status change")
		}
	}()
}

// AcknowledgeResponder marks a responder's acknowledgement and records how
// long after the alert it came.
func (ac *AlertCoordinator) AcknowledgeResponder(ctx context.Context, alertID, responderID string, at time.Time) (*models.Alert, error) {
	id, err := utils.ParseObjectID(alertID, "alert ID")
	if err != nil {
		return nil, err
	}

	unlock := ac.locks.Lock(id.Hex())
	defer unlock()

	var responseTime int64
	written := false
	updated, err := ac.guardedUpdate(ctx, id, func(alert *models.Alert) (bool, error) {
		written = false
		idx := -1
		for i := range alert.Responders {
			if alert.Responders[i].ResponderID == responderID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false, utils.NewNotFoundError("Responder assignment")
		}

		entry := &alert.Responders[idx]
		if entry.Acknowledged {
			return false, nil
		}

		responseTime = int64(at.Sub(alert.Timestamp).Seconds())
		if responseTime < 0 {
			responseTime = 0
		}
		entry.Acknowledged = true
		entry.AcknowledgedAt = &at
		entry.ResponseTimeSec = &responseTime
		alert.UpdatedAt = ac.now()
		alert.Events = append(alert.Events, models.AlertEvent{
			Type:        models.AlertEventResponderAck,
			Description: fmt.Sprintf("%s acknowledged after %ds", entry.Name, responseTime),
			Actor:       responderID,
			Timestamp:   at,
		})
		written = true
		return true, nil
	})
	if err != nil {
		if _, ok := utils.GetServiceError(err); ok {
			return nil, err
		}
		return nil, utils.NewDatabaseError("acknowledge responder", err)
	}
	if !written {
		return updated, nil
	}

	ac.publish(updated, EventAlertAcknowledged, map[string]any{"responderId": responderID, "responseTimeSec": responseTime})
	return updated, nil
}

// =================== QUERIES ===================

// GetAlertForUser loads an alert the caller may see: its owner, or any
// responder or admin.
func (ac *AlertCoordinator) GetAlertForUser(ctx context.Context, alertID, userID, role string) (*models.Alert, error) {
	id, err := utils.ParseObjectID(alertID, "alert ID")
	if err != nil {
		return nil, err
	}

	alert, err := ac.alerts.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if alert.UserID.Hex() != userID && role != models.RoleAdmin && role != models.RoleResponder {
		return nil, utils.NewInsufficientPermissionsError()
	}
	return alert, nil
}

// =================== HELPERS ===================

func (ac *AlertCoordinator) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, ac.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

// attempt retries a single recipient send up to SendAttempts times, each
// under its own timeout.
func (ac *AlertCoordinator) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	return ac.retry(ctx, ac.cfg.SendAttempts, fn)
}

func (ac *AlertCoordinator) retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ac.cfg.RetryDelay * time.Duration(i)):
			}
		}
		if err = ac.withTimeout(ctx, fn); err == nil {
			return nil
		}
	}
	return err
}

// maxGuardedWrites bounds how often guardedUpdate re-reads after losing a
// version race to another instance.
const maxGuardedWrites = 5

// guardedUpdate reads the alert, applies mutate and writes it back only if
// nobody else wrote it in between. A lost race re-reads and reapplies mutate,
// so mutate must decide from the alert it is given. When mutate reports no
// change the stored alert is returned as read.
func (ac *AlertCoordinator) guardedUpdate(ctx context.Context, id primitive.ObjectID, mutate func(alert *models.Alert) (bool, error)) (*models.Alert, error) {
	for i := 0; i < maxGuardedWrites; i++ {
		var current *models.Alert
		err := ac.withTimeout(ctx, func(callCtx context.Context) error {
			var err error
			current, err = ac.alerts.Get(callCtx, id)
			return err
		})
		if err != nil {
			return nil, err
		}

		changed, err := mutate(current)
		if err != nil {
			return nil, err
		}
		if !changed {
			return current, nil
		}

		var swapped bool
		err = ac.withTimeout(ctx, func(callCtx context.Context) error {
			var err error
			swapped, err = ac.alerts.CompareAndSwap(callCtx, current)
			return err
		})
		if err != nil {
			return nil, err
		}
		if swapped {
			return current, nil
		}
		logrus.WithField("alertId", id.Hex()).Debug("Alert changed underneath write, retrying")
	}
	return nil, utils.NewConflictError("Alert is being updated concurrently, try again")
}

func (ac *AlertCoordinator) publish(alert *models.Alert, event string, details map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), ac.cfg.CallTimeout)
	defer cancel()
	if err := ac.events.PublishAlertEvent(ctx, event, NewAlertEvent(alert, ac.now(), details)); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"alertId": alert.ID.Hex(),
			"event":   event,
		}).Warn("Failed to publish alert event")
	}
}

func buildSOSMessage(name string, alert models.Alert, assessment models.SafetyAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s has triggered an SOS alert at %s.\n\n", name, alert.Timestamp.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "Location: https://maps.google.com/?q=%.6f,%.6f\n", alert.Coordinate.Latitude, alert.Coordinate.Longitude)
	if alert.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", alert.Message)
	}
	fmt.Fprintf(&b, "Area safety score: %d/100 (%s risk)\n", assessment.Score, strings.ReplaceAll(string(assessment.RiskLevel), "_", " "))
	b.WriteString("\nPlease try to reach them immediately and contact local authorities if you cannot.\n")
	return b.String()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
