package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streamdesk/go-streamkit/stream/network"
	"github.com/streamdesk/go-streamkit/stream/tusclient"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	value, ok := repo.envVars[key]
	if ok {
		return value
	}
	return ""
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	repo.envVars[key] = ""
	return nil
}

func (repo fakeEnvRepo) List() []string {
	envs := []string{}
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

type nopTracker struct{}

func (nopTracker) logUploadFinished(time.Duration, int64, bool) {}
func (nopTracker) logBulkRunFinished(time.Duration, Tally)     {}
func (nopTracker) logSelectionFinished(string, Tally)          {}
func (nopTracker) wait()                                       {}

// eventLog records ordered events from concurrent fakes.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.events...)
}

func (l *eventLog) indexOf(event string) int {
	for i, e := range l.snapshot() {
		if e == event {
			return i
		}
	}
	return -1
}

type fakeSession struct {
	mu          sync.Mutex
	failFor     map[string]error
	delay       time.Duration
	events      *eventLog
	inFlight    int
	maxInFlight int
}

func (s *fakeSession) Upload(ctx context.Context, source tusclient.FileSource, opts tusclient.UploadOptions, onProgress tusclient.ProgressFunc) (string, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.events != nil {
		s.events.add("start:" + opts.Name)
		defer s.events.add("end:" + opts.Name)
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	if err, ok := s.failFor[opts.Name]; ok {
		return "", err
	}

	if onProgress != nil {
		onProgress(tusclient.Progress{
			BytesUploaded: source.Size(),
			BytesTotal:    source.Size(),
			Percent:       100,
		})
	}
	return "media-" + opts.Name, nil
}

type fakeVideoAPI struct {
	mu sync.Mutex

	deleteErrs  map[string]error
	deleteCalls []string

	copyErr   error
	copyCalls []network.CopyFromURLRequest

	getVideoErr error
	getCalls    []string

	tickets map[string][]network.DownloadTicket
}

func (a *fakeVideoAPI) GetVideo(videoID string) (network.Video, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.getCalls = append(a.getCalls, videoID)
	if a.getVideoErr != nil {
		return network.Video{}, a.getVideoErr
	}
	return network.Video{UID: videoID}, nil
}

func (a *fakeVideoAPI) DeleteVideo(videoID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleteCalls = append(a.deleteCalls, videoID)
	if err, ok := a.deleteErrs[videoID]; ok {
		return err
	}
	return nil
}

func (a *fakeVideoAPI) CopyFromURL(request network.CopyFromURLRequest) (network.Video, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.copyCalls = append(a.copyCalls, request)
	if a.copyErr != nil {
		return network.Video{}, a.copyErr
	}
	return network.Video{UID: "copied-" + displayNameFromURL(request.URL)}, nil
}

func (a *fakeVideoAPI) EnableDownload(videoID string) (network.DownloadTicket, error) {
	return network.DownloadTicket{State: network.DownloadInProgress}, nil
}

func (a *fakeVideoAPI) GetDownloadStatus(videoID string) (network.DownloadTicket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sequence := a.tickets[videoID]
	if len(sequence) == 0 {
		return network.DownloadTicket{State: network.DownloadInProgress}, nil
	}
	ticket := sequence[0]
	if len(sequence) > 1 {
		a.tickets[videoID] = sequence[1:]
	}
	return ticket, nil
}

type recordingObserver struct {
	mu        sync.Mutex
	statuses  map[string][]ItemStatus
	errs      map[string]string
	progress  map[string][]Progress
	doneTally *Tally
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		statuses: map[string][]ItemStatus{},
		errs:     map[string]string{},
		progress: map[string][]Progress{},
	}
}

func (o *recordingObserver) OnProgress(itemID string, progress Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress[itemID] = append(o.progress[itemID], progress)
}

func (o *recordingObserver) OnStatus(itemID string, status ItemStatus, errMsg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses[itemID] = append(o.statuses[itemID], status)
	if errMsg != "" {
		o.errs[itemID] = errMsg
	}
}

func (o *recordingObserver) OnRunDone(tally Tally) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.doneTally = &tally
}
