package vocal

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Recorder keeps a history of conversion jobs.
type Recorder interface {
	RecordJob(ctx context.Context, j *Job) error
}

type PanelConfig struct {
	Orchestrator *Orchestrator
	Recorder     Recorder
}

type State struct {
	File       *File    `json:"file,omitempty"`
	Hints      []string `json:"hints,omitempty"`
	Voice      string   `json:"voice"`
	Converting bool     `json:"converting"`
	Job        *Job     `json:"job,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Panel holds the state of the vocal panel. The selected file is kept until
// another one is selected.
type Panel struct {
	orchestrator *Orchestrator
	recorder     Recorder

	lck        sync.Mutex
	file       *File
	voice      string
	converting bool
	job        *Job
	err        string
}

func NewPanel(cfg *PanelConfig) *Panel {
	return &Panel{
		orchestrator: cfg.Orchestrator,
		recorder:     cfg.Recorder,
		voice:        DefaultVoice,
	}
}

func (p *Panel) State() State {
	p.lck.Lock()
	defer p.lck.Unlock()
	s := State{
		Voice:      p.voice,
		Converting: p.converting,
		Error:      p.err,
	}
	if p.file != nil {
		f := *p.file
		s.File = &f
		s.Hints = CheckFile(p.file)
	}
	if p.job != nil {
		j := *p.job
		s.Job = &j
	}
	return s
}

// SetFile selects the file to convert and returns advisory hints about it.
func (p *Panel) SetFile(f *File) []string {
	hints := CheckFile(f)
	for _, h := range hints {
		log.Printf("vocal: %s\n", h)
	}
	p.lck.Lock()
	defer p.lck.Unlock()
	p.file = f
	p.job = nil
	p.err = ""
	return hints
}

func (p *Panel) SetVoice(voice string) error {
	if !ValidVoice(voice) {
		return fmt.Errorf("%w: %q", ErrInvalidVoice, voice)
	}
	p.lck.Lock()
	defer p.lck.Unlock()
	p.voice = voice
	return nil
}

// Convert converts the selected file with the selected voice.
func (p *Panel) Convert(ctx context.Context) (*Job, error) {
	p.lck.Lock()
	if p.converting {
		p.lck.Unlock()
		return nil, ErrBusy
	}
	if p.file == nil {
		p.lck.Unlock()
		return nil, ErrNoFile
	}
	f := p.file
	voice := p.voice
	p.converting = true
	p.job = nil
	p.err = ""
	p.lck.Unlock()

	job, err := p.orchestrator.Convert(ctx, f, voice)

	p.lck.Lock()
	p.converting = false
	if err != nil {
		p.err = err.Error()
	} else {
		p.job = job
	}
	p.lck.Unlock()
	if err != nil {
		return nil, err
	}

	if p.recorder != nil {
		if err := p.recorder.RecordJob(ctx, job); err != nil {
			log.Printf("vocal: couldn't record job %s: %v\n", job.ID, err)
		}
	}
	return job, nil
}

// Reset discards the result and the error. The selected file is kept.
func (p *Panel) Reset() {
	p.lck.Lock()
	defer p.lck.Unlock()
	p.job = nil
	p.err = ""
}
