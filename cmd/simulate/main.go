package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

// The simulator hammers the reservation coordinator with concurrent
// bookings and cancellations against the in-memory store, then checks that
// the cross-ledger invariant held: doses consumed per vaccine equals the
// number of outstanding appointments for it, with no oversell and no
// double-booked slot.

type SimConfig struct {
	Workers    int
	Duration   time.Duration
	Caregivers int
	Days       int
	Vaccines   int
	Doses      int
	CancelPct  int
}

func loadSimConfig() SimConfig {
	return SimConfig{
		Workers:    getInt("SIM_WORKERS", 32),
		Duration:   getDuration("SIM_DURATION", 5*time.Second),
		Caregivers: getInt("SIM_CAREGIVERS", 10),
		Days:       getInt("SIM_DAYS", 5),
		Vaccines:   getInt("SIM_VACCINES", 3),
		Doses:      getInt("SIM_DOSES", 20),
		CancelPct:  getInt("SIM_CANCEL_PCT", 30),
	}
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, rejected bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case rejected:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, p50, p95
}

type appointmentPool struct {
	mu  sync.Mutex
	ids []int64
	by  map[int64]string // id -> patient
}

func (p *appointmentPool) Add(id int64, patient string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	p.by[id] = patient
}

func (p *appointmentPool) TakeRandom(rng *rand.Rand) (int64, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ids) == 0 {
		return 0, "", false
	}
	i := rng.Intn(len(p.ids))
	id := p.ids[i]
	p.ids[i] = p.ids[len(p.ids)-1]
	p.ids = p.ids[:len(p.ids)-1]
	patient := p.by[id]
	delete(p.by, id)
	return id, patient, true
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := loadSimConfig()
	log.Printf("simulate: workers=%d duration=%s caregivers=%d days=%d vaccines=%d doses=%d cancel_pct=%d",
		cfg.Workers, cfg.Duration, cfg.Caregivers, cfg.Days, cfg.Vaccines, cfg.Doses, cfg.CancelPct)

	store := scheduling.NewMemoryStore()
	svc := scheduling.NewService(store, 3)
	ctx := context.Background()

	days := make([]time.Time, cfg.Days)
	start := scheduling.NormalizeDay(time.Now())
	for d := range days {
		days[d] = start.AddDate(0, 0, d)
	}

	vaccines := make([]string, cfg.Vaccines)
	for v := range vaccines {
		vaccines[v] = fmt.Sprintf("vaccine-%02d", v)
		if err := svc.AddDoses(ctx, vaccines[v], cfg.Doses); err != nil {
			log.Fatalf("add doses: %v", err)
		}
	}

	for c := 0; c < cfg.Caregivers; c++ {
		caregiver := fmt.Sprintf("caregiver-%02d", c)
		for _, day := range days {
			if err := svc.UploadAvailability(ctx, caregiver, day); err != nil {
				log.Fatalf("upload availability: %v", err)
			}
		}
	}

	var (
		bookMetrics   OperationMetrics
		cancelMetrics OperationMetrics
		pool          = &appointmentPool{by: make(map[int64]string)}
		wg            sync.WaitGroup
	)

	deadline := time.Now().Add(cfg.Duration)
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker) + time.Now().UnixNano()))
			patient := fmt.Sprintf("patient-%03d", worker)

			for time.Now().Before(deadline) {
				if rng.Intn(100) < cfg.CancelPct {
					id, owner, ok := pool.TakeRandom(rng)
					if !ok {
						continue
					}
					t0 := time.Now()
					err := svc.Cancel(ctx, owner, scheduling.RolePatient, id)
					cancelMetrics.Record(time.Since(t0), err == nil, false)
					if err != nil {
						log.Printf("cancel %d failed: %v", id, err)
					}
					continue
				}

				day := days[rng.Intn(len(days))]
				vaccine := vaccines[rng.Intn(len(vaccines))]
				t0 := time.Now()
				conf, err := svc.Book(ctx, patient, day, vaccine)
				rejected := errors.Is(err, scheduling.ErrOutOfStock) ||
					errors.Is(err, scheduling.ErrNoSuchSlot) ||
					errors.Is(err, scheduling.ErrTxConflict)
				bookMetrics.Record(time.Since(t0), err == nil, rejected)
				if err == nil {
					pool.Add(conf.AppointmentID, patient)
				} else if !rejected {
					log.Printf("book failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	report("book", &bookMetrics)
	report("cancel", &cancelMetrics)

	if err := verify(ctx, store, vaccines, cfg.Doses); err != nil {
		log.Fatalf("INVARIANT VIOLATION: %v", err)
	}
	log.Println("invariants hold: no oversell, consistent ledgers")
}

func report(name string, m *OperationMetrics) {
	avg, p50, p95 := m.Stats()
	log.Printf("%s: total=%d success=%d rejected=%d error=%d avg=%s p50=%s p95=%s",
		name, m.Total, m.Success, m.Rejected, m.Error, avg, p50, p95)
}

// verify recounts both sides of the cross-ledger invariant from the final
// state: consumed doses per vaccine must equal outstanding appointments.
func verify(ctx context.Context, store *scheduling.MemoryStore, vaccines []string, initialDoses int) error {
	stocks, err := store.ListVaccines(ctx)
	if err != nil {
		return err
	}

	outstanding := make(map[string]int)
	for w := 0; w < 1024; w++ {
		patient := fmt.Sprintf("patient-%03d", w)
		appts, err := store.ListAppointmentsFor(ctx, patient, scheduling.RolePatient)
		if err != nil {
			return err
		}
		for _, a := range appts {
			outstanding[a.Vaccine]++
		}
	}

	for _, s := range stocks {
		if s.Doses < 0 {
			return fmt.Errorf("vaccine %s oversold: %d doses", s.Name, s.Doses)
		}
		if s.Doses+outstanding[s.Name] != initialDoses {
			return fmt.Errorf("vaccine %s: %d remaining + %d outstanding != %d initial",
				s.Name, s.Doses, outstanding[s.Name], initialDoses)
		}
	}
	return nil
}
