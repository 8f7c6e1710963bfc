package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automation_definitions (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				trigger_name VARCHAR(100) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT false,
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_definitions_workspace ON automation_definitions(workspace_id);
			CREATE INDEX idx_definitions_match ON automation_definitions(workspace_id, trigger_name, active);

			CREATE TABLE automation_runs (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				definition_id VARCHAR(255) NOT NULL,
				contact_id VARCHAR(255),
				listing_id VARCHAR(255),
				trigger_name VARCHAR(100) NOT NULL,
				payload JSONB,
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'success', 'failed')),
				message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_runs_workspace ON automation_runs(workspace_id, started_at);
			CREATE INDEX idx_runs_definition ON automation_runs(definition_id);

			CREATE TABLE automation_run_steps (
				id VARCHAR(255) PRIMARY KEY,
				run_id VARCHAR(255) NOT NULL REFERENCES automation_runs(id) ON DELETE CASCADE,
				step_index INTEGER NOT NULL,
				step_id VARCHAR(255),
				kind VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('success', 'error', 'skipped')),
				message TEXT,
				detail JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (run_id, step_index)
			);

			CREATE INDEX idx_run_steps_run ON automation_run_steps(run_id, step_index);
		`,
	}
}
