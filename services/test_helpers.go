package services

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ceramicnetwork/go-mint/common/loggers"
	"github.com/ceramicnetwork/go-mint/models"
)

const testContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
const testAccount = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func testConfig() models.MintConfig {
	return models.MintConfig{
		ContractAddress:     testContractAddress,
		Abi:                 models.MintAbi,
		InferenceEndpoint:   models.DefaultInferenceEndpoint,
		StorageGateway:      models.DefaultStorageGateway,
		PaymentAmount:       big.NewInt(100000000000000000),
		Chain:               models.Chain{Name: "sepolia", ChainId: 11155111, Testnet: true},
		ConfirmationTimeout: models.DefaultConfirmationTimeout,
	}
}

type FakeImageGenerator struct {
	mu      sync.Mutex
	prompts []string
	image   *models.GeneratedImage
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *FakeImageGenerator) Generate(ctx context.Context, prompt string) (*models.GeneratedImage, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

func (f *FakeImageGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.prompts...)
}

type storeCall struct {
	image       *models.GeneratedImage
	name        string
	description string
}

type FakeMetadataStore struct {
	mu      sync.Mutex
	calls   []storeCall
	receipt *models.StorageReceipt
	err     error
}

func (f *FakeMetadataStore) Store(_ context.Context, image *models.GeneratedImage, name, description string) (*models.StorageReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{image, name, description})
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

func (f *FakeMetadataStore) Calls() []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storeCall{}, f.calls...)
}

type FakeWallet struct {
	mu           sync.Mutex
	disconnected bool
	calls        []models.ContractCall
	txHash       string
	writeErr     error
	txStatus     models.TxStatus
	receiptErr   error
	waitForCtx   bool
}

func (f *FakeWallet) Account(_ context.Context) (string, bool) {
	if f.disconnected {
		return "", false
	}
	return testAccount, true
}

func (f *FakeWallet) WriteContract(_ context.Context, call models.ContractCall) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.writeErr != nil {
		return "", f.writeErr
	}
	return f.txHash, nil
}

func (f *FakeWallet) WaitForReceipt(ctx context.Context, _ string) (models.TxStatus, error) {
	if f.waitForCtx {
		<-ctx.Done()
		return models.TxStatus_Pending, ctx.Err()
	}
	if f.receiptErr != nil {
		return models.TxStatus_Pending, f.receiptErr
	}
	return f.txStatus, nil
}

func (f *FakeWallet) Calls() []models.ContractCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ContractCall{}, f.calls...)
}

type FakeMetricService struct {
	mu     sync.Mutex
	counts map[models.MetricName]int
}

func (f *FakeMetricService) Count(_ context.Context, name models.MetricName, val int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[models.MetricName]int)
	}
	f.counts[name] += val
	return nil
}

func (f *FakeMetricService) Distribution(_ context.Context, _ models.MetricName, _ int) error {
	return nil
}

func (f *FakeMetricService) Shutdown(_ context.Context) {}

func (f *FakeMetricService) Counted(name models.MetricName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

type FakeObserver struct {
	mu   sync.Mutex
	runs []models.MintRun
	err  error
}

func (f *FakeObserver) Observe(_ context.Context, run *models.MintRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return f.err
}

func (f *FakeObserver) Stages() []models.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	stages := make([]models.Stage, len(f.runs))
	for i, run := range f.runs {
		stages[i] = run.Stage
	}
	return stages
}

type FakeMintRepository struct {
	runs map[string]models.MintRun
}

func (f *FakeMintRepository) CreateRun(_ context.Context, run *models.MintRun) (bool, error) {
	if _, found := f.runs[run.Id]; found {
		return false, nil
	}
	f.runs[run.Id] = *run
	return true, nil
}

func (f *FakeMintRepository) UpdateRun(_ context.Context, run *models.MintRun) error {
	if _, found := f.runs[run.Id]; !found {
		return errors.New("run not found")
	}
	f.runs[run.Id] = *run
	return nil
}

func (f *FakeMintRepository) GetRun(_ context.Context, id string) (*models.MintRun, error) {
	if run, found := f.runs[id]; found {
		return &run, nil
	}
	return nil, nil
}

type FakeKeyValueRepository struct {
	values map[string]any
}

func (f *FakeKeyValueRepository) Store(_ context.Context, key string, value interface{}) error {
	f.values[key] = value
	return nil
}

type FakePublisher struct {
	messages    chan any
	numAttempts int
	errorOn     int
}

func (f *FakePublisher) SendMessage(ctx context.Context, event any) (string, error) {
	select {
	case <-ctx.Done():
		return "", errors.New("context cancelled")
	default:
		f.numAttempts = f.numAttempts + 1
		if f.numAttempts == f.errorOn {
			return "", errors.New("TestError")
		}
		f.messages <- event
		return "msgId", nil
	}
}

type notification struct {
	alert   bool
	title   string
	desc    string
	content string
}

type FakeNotifier struct {
	notifs chan notification
}

func (f *FakeNotifier) SendAlert(title, desc, content string) error {
	f.notifs <- notification{true, title, desc, content}
	return nil
}

func (f *FakeNotifier) SendInfo(title, desc, content string) error {
	f.notifs <- notification{false, title, desc, content}
	return nil
}

func waitForMesssages(messageChannel chan any, n int) []any {
	messages := make([]any, n)
	for i := 0; i < n; i++ {
		message := <-messageChannel
		messages[i] = message
	}
	return messages
}

type testPipeline struct {
	generator     *FakeImageGenerator
	store         *FakeMetadataStore
	wallet        *FakeWallet
	metricService *FakeMetricService
	observer      *FakeObserver
	orchestrator  *MintOrchestrator
}

// newTestPipeline wires an orchestrator to fakes that mint "Cat" successfully unless the test overrides them.
func newTestPipeline() *testPipeline {
	p := &testPipeline{
		generator: &FakeImageGenerator{image: &models.GeneratedImage{Data: []byte{0xff, 0xd8, 0xff}, ContentType: "image/jpeg"}},
		store: &FakeMetadataStore{receipt: &models.StorageReceipt{
			Cid:         "bafy123",
			ImageCid:    "bafyimage",
			MetadataUrl: "https://ipfs.io/ipfs/bafy123/metadata.json",
		}},
		wallet:        &FakeWallet{txHash: "0xabc", txStatus: models.TxStatus_Confirmed},
		metricService: &FakeMetricService{},
		observer:      &FakeObserver{},
	}
	p.orchestrator = p.build()
	return p
}

func (p *testPipeline) build() *MintOrchestrator {
	return NewMintOrchestrator("session", testConfig(), p.generator, p.store, p.wallet, p.metricService, loggers.NewTestLogger(), p.observer)
}
