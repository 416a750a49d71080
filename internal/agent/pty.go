package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"syscall"

	"github.com/creack/pty"

	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
)

// PTYSpawner runs children on a pseudo-terminal so prompts that insist on a
// tty (ssh-add, pinentry-tty) behave as they would for a human.
type PTYSpawner struct {
	Logger logger.Logger
	// Env is appended to the current environment of the child.
	Env []string
}

type readResult struct {
	data []byte
	err  error
}

type ptySession struct {
	cmd    *exec.Cmd
	pty    *os.File
	reads  chan readResult
	buf    []byte
	eof    bool
	logger logger.Logger

	drainOnce sync.Once
	closeOnce sync.Once
}

func (s PTYSpawner) Spawn(ctx context.Context, name string, args ...string) (Session, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), s.Env...)

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	s.Logger.Debugf("Started %s with pid %d", name, cmd.Process.Pid)

	session := &ptySession{
		cmd:    cmd,
		pty:    f,
		reads:  make(chan readResult),
		logger: s.Logger,
	}
	go session.readLoop()
	return session, nil
}

func (s *ptySession) readLoop() {
	defer close(s.reads)
	for {
		chunk := make([]byte, 4096)
		n, err := s.pty.Read(chunk)
		if n > 0 {
			s.reads <- readResult{data: chunk[:n]}
		}
		if err != nil {
			s.reads <- readResult{err: err}
			return
		}
	}
}

// isStreamEnd reports whether err means the child side is gone. Linux
// returns EIO from a pty master once the last slave descriptor is closed.
func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}

func (s *ptySession) Expect(ctx context.Context, patterns []*regexp.Regexp) (Match, error) {
	for {
		if index, loc := matchFirst(s.buf, patterns); index != StreamEnd {
			before := string(s.buf[:loc[0]])
			s.buf = s.buf[loc[1]:]
			return Match{Index: index, Before: before}, nil
		}
		if s.eof {
			before := string(s.buf)
			s.buf = nil
			return Match{Index: StreamEnd, Before: before}, nil
		}

		select {
		case <-ctx.Done():
			return Match{}, fmt.Errorf("waiting for prompt: %w", kerrors.ErrInterrupted)
		case r, ok := <-s.reads:
			switch {
			case !ok:
				s.eof = true
			case r.err != nil:
				if !isStreamEnd(r.err) {
					return Match{}, fmt.Errorf("reading output: %w: %w", kerrors.ErrAgentDriverFailure, r.err)
				}
				s.eof = true
			default:
				s.buf = append(s.buf, r.data...)
			}
		}
	}
}

func (s *ptySession) SendLine(line string) error {
	if _, err := io.WriteString(s.pty, line+"\n"); err != nil {
		return fmt.Errorf("writing response: %w: %w", kerrors.ErrAgentDriverFailure, err)
	}
	return nil
}

// drain keeps consuming output so the child never blocks on a full pty buffer.
func (s *ptySession) drain() {
	s.drainOnce.Do(func() {
		go func() {
			for range s.reads {
			}
		}()
	})
}

func (s *ptySession) Wait() error {
	s.drain()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("waiting for exit: %w: %w", kerrors.ErrAgentDriverFailure, err)
	}
	s.logger.Debugf("Process %d exited", s.cmd.Process.Pid)
	return nil
}

func (s *ptySession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.drain()
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
			_ = s.cmd.Wait()
		}
		err = s.pty.Close()
	})
	return err
}
