// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package demo

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/signin"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// sharedOwnerID is the demo section that owns the Swimming Gala.
const sharedOwnerID = 11107

// demoTermID is the single term every demo section runs in.
const demoTermID = models.ID("12345")

// externalSectionID is the synthetic guest section that only exists in
// the gala's sharing topology.
const externalSectionID = 99999

type sectionFixture struct {
	id      int
	name    string
	kind    string
	minAge  int
	ageSpan int
}

var sectionFixtures = []sectionFixture{
	{11107, "Demo Adults", "adults", 25, 25},
	{11108, "Demo Squirrels", "earlyyears", 4, 2},
	{11113, "Demo Beavers", "beavers", 6, 2},
	{49097, "Demo Cubs", "cubs", 8, 3},
}

var eventNames = []string{
	"Weekly Meeting",
	"Swimming Gala (Shared)",
	"Camp Weekend",
	"Autumn Hike",
	"Museum Visit",
	"Games Night",
}

var firstNames = []string{
	"Alfie", "Bella", "Charlie", "Daisy", "Edward", "Freya", "George",
	"Holly", "Isaac", "Jessica", "Kian", "Lily", "Max", "Nina", "Oscar",
	"Poppy", "Quinn", "Rosie", "Sam", "Tilly", "Umar", "Violet", "Will",
	"Yasmin",
}

var lastNames = []string{
	"Anderson", "Baker", "Clarke", "Davies", "Evans", "Foster", "Green",
	"Hughes", "Irwin", "Jones", "Khan", "Lewis", "Mason", "Nolan",
	"O'Brien", "Patel", "Quigley", "Roberts", "Smith", "Taylor", "Unwin",
	"Vaughan", "Walker", "Young",
}

// Seeder populates the demo_ namespace on first run.
type Seeder struct {
	st  *store.Store
	now func() time.Time
}

// NewSeeder builds a seeder over the shared store.
func NewSeeder(st *store.Store) *Seeder {
	return &Seeder{st: st, now: time.Now}
}

// SetClock overrides the fixture clock for tests.
func (s *Seeder) SetClock(now func() time.Time) { s.now = now }

// Seed writes the full demo fixture. Idempotent: an existing demo section
// list means a previous run already seeded and nothing is touched.
func (s *Seeder) Seed() error {
	seeded, err := s.st.Has(store.DemoKey(store.SectionsKey()))
	if err != nil {
		return err
	}
	if seeded {
		logging.Debug().Msg("demo fixture already seeded")
		return nil
	}

	now := s.now()
	logging.Info().Msg("seeding demo fixture")

	if err := s.seedSections(now); err != nil {
		return err
	}
	if err := s.seedTerms(now); err != nil {
		return err
	}
	if err := s.seedStartup(now); err != nil {
		return err
	}

	var allMembers []models.Member
	for _, fix := range sectionFixtures {
		members, err := s.seedSection(fix, now)
		if err != nil {
			return fmt.Errorf("seed section %d: %w", fix.id, err)
		}
		allMembers = append(allMembers, members...)
	}

	merged := models.MergeMembers(allMembers)
	if err := s.putEnvelope(store.MembersKey(), merged, now); err != nil {
		return err
	}
	if err := s.st.Put(store.DemoKey(store.MembersComprehensiveKey()), merged); err != nil {
		return err
	}

	if err := s.seedSharedGala(allMembers, now); err != nil {
		return err
	}

	logging.Info().Int("sections", len(sectionFixtures)).Int("members", len(merged)).Msg("demo fixture seeded")
	return nil
}

func (s *Seeder) putEnvelope(key string, items any, now time.Time) error {
	env := map[string]any{"items": items, "_cacheTimestamp": now.UnixMilli()}
	return s.st.Put(store.DemoKey(key), env)
}

func (s *Seeder) putWrapped(key string, value any, now time.Time) error {
	w := map[string]any{"value": value, "_cacheTimestamp": now.UnixMilli()}
	return s.st.Put(store.DemoKey(key), w)
}

func (s *Seeder) seedSections(now time.Time) error {
	sections := make([]models.Section, 0, len(sectionFixtures))
	for _, fix := range sectionFixtures {
		sections = append(sections, models.Section{
			SectionID:   fix.id,
			SectionName: fix.name,
			Section:     fix.kind,
			SectionType: fix.kind,
			Permissions: models.Permissions{
				Events: 20, Member: 20, Flexi: 20, Register: 20,
			},
		})
	}
	return s.putEnvelope(store.SectionsKey(), sections, now)
}

func (s *Seeder) seedTerms(now time.Time) error {
	term := models.Term{
		TermID:    demoTermID,
		Name:      "Demo Term",
		StartDate: now.AddDate(0, -2, 0).Format("2006-01-02"),
		EndDate:   now.AddDate(0, 4, 0).Format("2006-01-02"),
	}
	terms := models.TermsBySection{}
	for _, fix := range sectionFixtures {
		terms[strconv.Itoa(fix.id)] = []models.Term{term}
	}
	return s.putWrapped(store.TermsKey(), terms, now)
}

func (s *Seeder) seedStartup(now time.Time) error {
	data := models.StartupData{
		Firstname: "Demo",
		Lastname:  "Leader",
		UserID:    "demo_user_1",
		Email:     "demo.leader@example.com",
	}
	return s.putWrapped(store.StartupKey(), data, now)
}

// seedSection writes one section's events, members, attendance and flexi
// record, returning the member rows for the cross-section merge.
func (s *Seeder) seedSection(fix sectionFixture, now time.Time) ([]models.Member, error) {
	// Seeded per section id: the fixture is identical on every run.
	rng := rand.New(rand.NewSource(int64(fix.id)))

	events := s.buildEvents(fix, now)
	if err := s.putEnvelope(store.EventsKey(fix.id), events, now); err != nil {
		return nil, err
	}
	if err := s.st.Put(store.DemoKey(store.EventsTermKey(fix.id, demoTermID)), events); err != nil {
		return nil, err
	}

	members := s.buildMembers(fix, rng)
	if err := s.putEnvelope(store.MembersSectionKey(fix.id), members, now); err != nil {
		return nil, err
	}

	for _, ev := range events {
		attendance := buildAttendance(ev, members, rng)
		key := store.AttendanceKey(fix.id, demoTermID, ev.EventID)
		if err := s.putEnvelope(key, attendance, now); err != nil {
			return nil, err
		}
	}

	if err := s.seedFlexiRecord(fix, members, rng, now); err != nil {
		return nil, err
	}

	return members, nil
}

func (s *Seeder) buildEvents(fix sectionFixture, now time.Time) []models.Event {
	events := make([]models.Event, 0, len(eventNames))
	for i, name := range eventNames {
		start := now.AddDate(0, 0, 7*(i-2))
		events = append(events, models.Event{
			EventID:     models.ID(fmt.Sprintf("demo_event_%d_%d", fix.id, i+1)),
			Name:        name,
			SectionID:   fix.id,
			SectionName: fix.name,
			TermID:      demoTermID,
			StartDate:   start.Format("2006-01-02"),
			EndDate:     start.Format("2006-01-02"),
			Location:    "Demo Scout Hall",
			Shared:      i == 1,
		})
	}
	return events
}

func (s *Seeder) buildMembers(fix sectionFixture, rng *rand.Rand) []models.Member {
	count := 18 + rng.Intn(7)
	members := make([]models.Member, 0, count)
	for n := 1; n <= count; n++ {
		patrolID := 0
		patrol := "Red Six"
		switch {
		case n <= 2:
			patrolID = -2
			patrol = "Leaders"
		case n == 3:
			patrolID = -3
			patrol = "Young Leaders"
		case n%2 == 0:
			patrol = "Blue Six"
		}

		ageYears := fix.minAge + rng.Intn(fix.ageSpan+1)
		ageMonths := rng.Intn(12)
		if patrolID != 0 {
			ageYears = 18 + rng.Intn(30)
		}

		members = append(members, models.Member{
			ScoutID:     models.ID(fmt.Sprintf("demo_%d_%d", fix.id, n)),
			Firstname:   firstNames[(n-1)%len(firstNames)],
			Lastname:    lastNames[((n-1)+fix.id)%len(lastNames)],
			SectionID:   fix.id,
			SectionName: fix.name,
			Patrol:      patrol,
			PatrolID:    patrolID,
			PersonType:  models.PersonTypeFromPatrol(patrolID),
			AgeYears:    ageYears,
			AgeMonths:   ageMonths,
			HasPhoto:    rng.Float64() < 0.5,
			Sections:    []string{fix.name},
		})
	}
	return members
}

// buildAttendance draws each member's status from the fixture
// distribution: Yes 50%, Invited 20%, No 15%, Not Invited 15%.
func buildAttendance(ev models.Event, members []models.Member, rng *rand.Rand) []models.AttendanceRecord {
	out := make([]models.AttendanceRecord, 0, len(members))
	for _, m := range members {
		var status models.AttendanceStatus
		switch p := rng.Float64(); {
		case p < 0.50:
			status = models.AttendanceYes
		case p < 0.70:
			status = models.AttendanceInvited
		case p < 0.85:
			status = models.AttendanceNo
		default:
			status = models.AttendanceNotInvited
		}
		out = append(out, models.AttendanceRecord{
			ScoutID:   m.ScoutID,
			EventID:   ev.EventID,
			SectionID: ev.SectionID,
			Firstname: m.Firstname,
			Lastname:  m.Lastname,
			Attending: status,
			Patrol:    m.Patrol,
		})
	}
	return out
}

// seedFlexiRecord writes the section's Viking Event Mgmt record: catalog
// entry, structure with the five custom fields, and per-member data with
// roughly 70% signed in and 60% of those signed out again.
func (s *Seeder) seedFlexiRecord(fix sectionFixture, members []models.Member, rng *rand.Rand, now time.Time) error {
	extraID := models.ID(fmt.Sprintf("demo_flexi_%d_1", fix.id))

	list := []models.FlexiRecordListItem{{ExtraID: extraID, Name: models.VikingRecordName}}
	if err := s.putEnvelope(store.FlexiListsKey(fix.id), list, now); err != nil {
		return err
	}

	fields := []models.FlexiConfigField{
		{ID: "f_1", Name: models.FieldCampGroup},
		{ID: "f_2", Name: models.FieldSignedInBy},
		{ID: "f_3", Name: models.FieldSignedInWhen},
		{ID: "f_4", Name: models.FieldSignedOutBy},
		{ID: "f_5", Name: models.FieldSignedOutWhen},
	}
	config, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	structure := models.FlexiStructure{
		ExtraID: extraID,
		Name:    models.VikingRecordName,
		Config:  config,
	}
	if err := s.putWrapped(store.FlexiStructureKey(extraID), structure, now); err != nil {
		return err
	}

	rows := make([]models.FlexiDataRow, 0, len(members))
	for i, m := range members {
		row := models.FlexiDataRow{
			ScoutID:   m.ScoutID,
			Firstname: m.Firstname,
			Lastname:  m.Lastname,
			Fields: map[string]string{
				"f_1": fmt.Sprintf("Group %d", i%4+1),
				"f_2": signin.ClearedText,
				"f_3": signin.ClearedTime,
				"f_4": signin.ClearedText,
				"f_5": signin.ClearedTime,
			},
		}
		if rng.Float64() < 0.7 {
			in := now.Add(-time.Duration(rng.Intn(120)) * time.Minute)
			row.Fields["f_2"] = "Demo Leader"
			row.Fields["f_3"] = in.UTC().Format(time.RFC3339)
			if rng.Float64() < 0.6 {
				row.Fields["f_4"] = "Demo Leader"
				row.Fields["f_5"] = in.Add(90 * time.Minute).UTC().Format(time.RFC3339)
			}
		}
		rows = append(rows, row)
	}

	return s.putEnvelope(store.FlexiDataKey(extraID, fix.id, demoTermID), rows, now)
}

// seedSharedGala writes the Swimming Gala topology and combined
// attendance. Every demo section plus one synthetic external section
// participates; each section reads the roster under its own event id.
func (s *Seeder) seedSharedGala(allMembers []models.Member, now time.Time) error {
	galaID := func(sectionID int) models.ID {
		return models.ID(fmt.Sprintf("demo_event_%d_2", sectionID))
	}

	participants := make([]models.SharedSection, 0, len(sectionFixtures)+1)
	for _, fix := range sectionFixtures {
		status := models.SharedAccepted
		if fix.id == sharedOwnerID {
			status = models.SharedOwner
		}
		participants = append(participants, models.SharedSection{
			SectionID:   fix.id,
			SectionName: fix.name,
			GroupName:   "1st Demo Group",
			EventID:     galaID(fix.id),
			Status:      status,
		})
	}
	participants = append(participants, models.SharedSection{
		SectionID:   externalSectionID,
		SectionName: "Demo Explorers",
		GroupName:   "2nd Demo Group",
		EventID:     galaID(externalSectionID),
		Status:      models.SharedPending,
	})

	roster := buildSharedRoster(allMembers)

	for _, fix := range sectionFixtures {
		meta := models.SharedEventMetadata{
			IsSharedEvent: true,
			AllSections:   participants,
			SourceEvent: models.Event{
				EventID:     galaID(fix.id),
				Name:        "Swimming Gala (Shared)",
				SectionID:   fix.id,
				SectionName: fix.name,
				TermID:      demoTermID,
				Shared:      true,
			},
			IsOwner: fix.id == sharedOwnerID,
		}
		if err := s.putWrapped(store.SharedMetadataKey(galaID(fix.id)), meta, now); err != nil {
			return err
		}
		key := store.SharedAttendanceKey(galaID(fix.id), fix.id)
		if err := s.putEnvelope(key, roster, now); err != nil {
			return err
		}
	}
	return nil
}

// buildSharedRoster samples every third member into the gala roster,
// carrying age and origin section for the merged view.
func buildSharedRoster(allMembers []models.Member) []models.SharedAttendee {
	roster := make([]models.SharedAttendee, 0, len(allMembers)/3+1)
	for i, m := range allMembers {
		if i%3 != 0 {
			continue
		}
		age := fmt.Sprintf("%02d / %02d", m.AgeYears, m.AgeMonths)
		if m.AgeYears >= 25 {
			age = "25+"
		}
		roster = append(roster, models.SharedAttendee{
			ScoutID:     m.ScoutID,
			Firstname:   m.Firstname,
			Lastname:    m.Lastname,
			Age:         age,
			SectionID:   m.SectionID,
			SectionName: m.SectionName,
			GroupName:   "1st Demo Group",
		})
	}
	return roster
}
